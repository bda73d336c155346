package services

import (
	"time"

	"pizzeria/internal/models"

	log "github.com/sirupsen/logrus"
)

// EventPublisher forwards order lifecycle events to a broker.
type EventPublisher interface {
	PublishOrderEvent(event models.OrderEvent) error
}

// publishOrderEvent sends an event if a publisher is configured. Failures are
// logged and never change the outcome of the calling operation.
func publishOrderEvent(p EventPublisher, kind string, order *models.Order, at time.Time) {
	if p == nil {
		return
	}
	event := models.OrderEvent{
		Type:       kind,
		OrderID:    order.ID,
		UserEmail:  order.UserEmail,
		TotalPrice: order.TotalPrice,
		OccurredAt: at.UTC(),
	}
	if err := p.PublishOrderEvent(event); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"event":    kind,
			"order_id": order.ID,
		}).Warn("failed to publish order event")
	}
}
