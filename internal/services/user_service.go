package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"pizzeria/internal/models"
	"pizzeria/internal/repositories"

	"github.com/go-playground/validator/v10"
	log "github.com/sirupsen/logrus"
)

// SignupRequest carries the fields needed to open an account.
type SignupRequest struct {
	FirstName     string `json:"firstName" validate:"required,max=100"`
	LastName      string `json:"lastName" validate:"required,max=100"`
	Email         string `json:"email" validate:"required,email"`
	Password      string `json:"password" validate:"required,min=8"`
	StreetAddress string `json:"streetAddress" validate:"required,max=300"`
	TOSAgreement  bool   `json:"tosAgreement"`
}

// ProfileUpdate lists the editable account fields. Empty fields are left as is.
type ProfileUpdate struct {
	Email         string `json:"email" validate:"required"`
	FirstName     string `json:"firstName" validate:"omitempty,max=100"`
	LastName      string `json:"lastName" validate:"omitempty,max=100"`
	Password      string `json:"password" validate:"omitempty,min=8"`
	StreetAddress string `json:"streetAddress" validate:"omitempty,max=300"`
}

func (u *ProfileUpdate) trim() {
	u.Email = strings.TrimSpace(u.Email)
	u.FirstName = strings.TrimSpace(u.FirstName)
	u.LastName = strings.TrimSpace(u.LastName)
	u.StreetAddress = strings.TrimSpace(u.StreetAddress)
}

func (u *ProfileUpdate) empty() bool {
	return u.FirstName == "" && u.LastName == "" && u.Password == "" && u.StreetAddress == ""
}

// UserService handles account management.
type UserService struct {
	userRepo repositories.UserRepository
	tokens   *TokenService
	sweeper  *Sweeper
	validate *validator.Validate
	now      func() time.Time
}

// NewUserService creates a new UserService. The sweeper is used to cascade
// account deletion to the user's orders.
func NewUserService(userRepo repositories.UserRepository, tokens *TokenService, sweeper *Sweeper) *UserService {
	return &UserService{
		userRepo: userRepo,
		tokens:   tokens,
		sweeper:  sweeper,
		validate: newValidator(),
		now:      time.Now,
	}
}

// Signup registers a new user and stores the password hash.
func (s *UserService) Signup(ctx context.Context, req SignupRequest) (*models.User, error) {
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	req.Email = strings.TrimSpace(req.Email)
	req.StreetAddress = strings.TrimSpace(req.StreetAddress)

	if err := validateStruct(s.validate, req); err != nil {
		return nil, err
	}
	if !req.TOSAgreement {
		return nil, &ValidationError{Field: "tosAgreement", Message: "you have to agree to the terms and conditions"}
	}

	hashed, err := hashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Email:          req.Email,
		HashedPassword: hashed,
		StreetAddress:  req.StreetAddress,
		TOSAgreement:   true,
		SignedUpAt:     s.now().UTC(),
		Orders:         []int64{},
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrAlreadyExists) {
			return nil, &ValidationError{Field: "email", Message: "a user with that email already exists"}
		}
		return nil, &StorageError{Op: "create user", Err: err}
	}

	log.WithField("email", user.Email).Info("user signed up")
	out := user.Public()
	return &out, nil
}

// Get returns the account behind email. Any valid token may read any account.
func (s *UserService) Get(ctx context.Context, token, email string) (*models.User, error) {
	if _, ok := s.tokens.Verify(ctx, token); !ok {
		return nil, errInvalidToken
	}
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, &ValidationError{Field: "email", Message: "missing required field"}
	}
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, storageErr("read user", "user", email, err)
	}
	out := user.Public()
	return &out, nil
}

// Update edits profile fields. The token must belong to the edited account.
func (s *UserService) Update(ctx context.Context, token string, upd ProfileUpdate) (*models.User, error) {
	upd.trim()
	if err := validateStruct(s.validate, upd); err != nil {
		return nil, err
	}
	if upd.empty() {
		return nil, &ValidationError{Message: "missing fields to update, specify at least one field"}
	}
	if !s.tokens.VerifyOwnedBy(ctx, token, upd.Email) {
		return nil, &AuthError{Reason: ReasonTokenNotOwnedByAccount}
	}

	user, err := s.userRepo.GetByEmail(ctx, upd.Email)
	if err != nil {
		return nil, storageErr("read user", "user", upd.Email, err)
	}
	if upd.FirstName != "" {
		user.FirstName = upd.FirstName
	}
	if upd.LastName != "" {
		user.LastName = upd.LastName
	}
	if upd.StreetAddress != "" {
		user.StreetAddress = upd.StreetAddress
	}
	if upd.Password != "" {
		if user.HashedPassword, err = hashPassword(upd.Password); err != nil {
			return nil, err
		}
	}
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, storageErr("update user", "user", upd.Email, err)
	}
	out := user.Public()
	return &out, nil
}

// Delete removes the account and then, best effort, every order it owns.
func (s *UserService) Delete(ctx context.Context, token, email string) error {
	if _, ok := s.tokens.Verify(ctx, token); !ok {
		return errInvalidToken
	}
	email = strings.TrimSpace(email)
	if email == "" {
		return &ValidationError{Field: "email", Message: "missing required field"}
	}
	if !s.tokens.VerifyOwnedBy(ctx, token, email) {
		return &AuthError{Reason: ReasonTokenNotOwnedByAccount}
	}
	if err := s.userRepo.Delete(ctx, email); err != nil {
		return storageErr("delete user", "user", email, err)
	}

	if s.sweeper != nil {
		res := s.sweeper.Gather(ctx, repositories.OrdersFolder, []string{"userEmail"}, OwnedBy(email))
		log.WithFields(log.Fields{
			"email":   email,
			"deleted": res.Deleted,
			"failed":  res.Failed,
		}).Info("user deleted, orders purged")
	}
	return nil
}
