package services

import (
	"context"
	"strconv"
	"time"

	"pizzeria/internal/metrics"
	"pizzeria/internal/repositories"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultSweepInterval  = 15 * time.Minute
	DefaultOrderRetention = 7 * 24 * time.Hour
)

// Fields is the projection of a stored record onto the fields a predicate
// looks at. Numbers decode as float64.
type Fields map[string]any

// Predicate decides whether a record should be deleted.
type Predicate func(Fields) bool

// SweepResult counts what one pass over a folder did.
type SweepResult struct {
	Scanned int
	Deleted int
	Failed  int
}

// SweeperConfig tunes the sweeper. Zero values fall back to the defaults.
type SweeperConfig struct {
	Interval  time.Duration
	Retention time.Duration
	Now       func() time.Time
	Metrics   *metrics.Collectors
}

// Sweeper periodically deletes expired tokens and old paid orders.
type Sweeper struct {
	store     repositories.Store
	interval  time.Duration
	retention time.Duration
	now       func() time.Time
	metrics   *metrics.Collectors
	cron      *cron.Cron
}

// NewSweeper creates a new Sweeper over store.
func NewSweeper(store repositories.Store, cfg SweeperConfig) *Sweeper {
	s := &Sweeper{
		store:     store,
		interval:  cfg.Interval,
		retention: cfg.Retention,
		now:       cfg.Now,
		metrics:   cfg.Metrics,
	}
	if s.interval <= 0 {
		s.interval = DefaultSweepInterval
	}
	if s.retention <= 0 {
		s.retention = DefaultOrderRetention
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Gather reads every record in folder, projects fields and deletes the record
// when pred holds. A failure on one record is logged and the batch goes on.
func (s *Sweeper) Gather(ctx context.Context, folder string, fields []string, pred Predicate) SweepResult {
	var res SweepResult
	logger := log.WithField("folder", folder)

	keys, err := s.store.List(ctx, folder)
	if err != nil {
		logger.WithError(err).Error("sweeper could not list folder")
		res.Failed++
		return res
	}

	for _, key := range keys {
		res.Scanned++
		var doc map[string]any
		if err := s.store.Read(ctx, folder, key, &doc); err != nil {
			logger.WithError(err).WithField("key", key).Warn("sweeper could not read record")
			res.Failed++
			continue
		}

		projected := make(Fields, len(fields)+1)
		for _, f := range fields {
			if v, ok := doc[f]; ok {
				projected[f] = v
			}
		}
		projected[keyField] = key

		if !pred(projected) {
			continue
		}
		if err := s.store.Delete(ctx, folder, key); err != nil {
			logger.WithError(err).WithField("key", key).Warn("sweeper could not delete record")
			res.Failed++
			continue
		}
		res.Deleted++
	}
	return res
}

// keyField carries the storage key in every projection.
const keyField = "_key"

// TokenExpired matches token records whose expires field is present and not
// after now.
func TokenExpired(now time.Time) Predicate {
	cutoff := float64(now.UnixMilli())
	return func(f Fields) bool {
		expires, ok := f["expires"].(float64)
		return ok && expires <= cutoff
	}
}

// OrderRetired matches paid orders created more than retention before now.
// The creation time comes from the order id, falling back to the key.
func OrderRetired(now time.Time, retention time.Duration) Predicate {
	return func(f Fields) bool {
		if paid, _ := f["paid"].(bool); !paid {
			return false
		}
		var createdMillis int64
		if id, ok := f["id"].(float64); ok {
			createdMillis = int64(id)
		} else if key, ok := f[keyField].(string); ok {
			n, err := strconv.ParseInt(key, 10, 64)
			if err != nil {
				return false
			}
			createdMillis = n
		} else {
			return false
		}
		return now.Sub(time.UnixMilli(createdMillis)) > retention
	}
}

// OwnedBy matches order records whose owner is email.
func OwnedBy(email string) Predicate {
	return func(f Fields) bool {
		owner, ok := f["userEmail"].(string)
		return ok && owner == email
	}
}

// SweepOnce runs the token sweep and then the order sweep.
func (s *Sweeper) SweepOnce(ctx context.Context) (tokens, orders SweepResult) {
	now := s.now()

	tokens = s.Gather(ctx, repositories.TokensFolder, []string{"expires"}, TokenExpired(now))
	s.metrics.ObserveSweep(repositories.TokensFolder, tokens.Deleted, tokens.Failed)

	orders = s.Gather(ctx, repositories.OrdersFolder, []string{"id", "paid"}, OrderRetired(now, s.retention))
	s.metrics.ObserveSweep(repositories.OrdersFolder, orders.Deleted, orders.Failed)

	log.WithFields(log.Fields{
		"tokens_deleted": tokens.Deleted,
		"orders_deleted": orders.Deleted,
		"failures":       tokens.Failed + orders.Failed,
	}).Info("sweep finished")
	return tokens, orders
}

// Start sweeps once right away and then on every interval until Stop.
func (s *Sweeper) Start(ctx context.Context) {
	s.SweepOnce(ctx)

	s.cron = cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.PrintfLogger(log.StandardLogger()))))
	s.cron.Schedule(cron.Every(s.interval), cron.FuncJob(func() {
		s.SweepOnce(ctx)
	}))
	s.cron.Start()
	log.WithField("interval", s.interval).Info("background sweeper is running")
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
}
