package services

import (
	"context"
	"time"

	"github.com/anonto42/nano-midea/relay/internal/apperrors"
	"github.com/anonto42/nano-midea/relay/internal/models"
	"github.com/anonto42/nano-midea/relay/internal/repositories"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// SubscriptionService manages the push endpoints registered by users.
type SubscriptionService struct {
	repo     repositories.SubscriptionRepository
	validate *validator.Validate
	keyCheck func(p256dh, auth string) error
	now      func() time.Time
	log      *logrus.Entry
}

func NewSubscriptionService(repo repositories.SubscriptionRepository, log *logrus.Logger) *SubscriptionService {
	return &SubscriptionService{
		repo:     repo,
		validate: validator.New(),
		now:      time.Now,
		log:      log.WithField("component", "subscription_service"),
	}
}

// RequireKeys makes Register reject subscriptions whose keys fail check.
func (s *SubscriptionService) RequireKeys(check func(p256dh, auth string) error) {
	s.keyCheck = check
}

// Register upserts the endpoint for userID. An endpoint already owned by another
// user moves to userID; one owned by userID gets its keys and user agent refreshed.
func (s *SubscriptionService) Register(ctx context.Context, userID models.UserID, req models.RegisterSubscriptionRequest) (*models.PushSubscription, error) {
	if userID == "" {
		return nil, apperrors.Invalid("user id is required")
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, errors.Wrap(apperrors.ErrInvalidOperation, err.Error())
	}
	if s.keyCheck != nil {
		if err := s.keyCheck(req.Keys.P256dh, req.Keys.Auth); err != nil {
			return nil, errors.Wrap(apperrors.ErrInvalidOperation, err.Error())
		}
	}

	now := s.now().UTC().Truncate(time.Microsecond)
	sub := &models.PushSubscription{
		UserID:    userID,
		Endpoint:  req.Endpoint,
		Keys:      req.Keys,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if req.UserAgent != "" {
		ua := req.UserAgent
		sub.UserAgent = &ua
	}

	saved, err := s.repo.Upsert(ctx, sub)
	if errors.Is(err, apperrors.ErrConstraintViolation) {
		s.log.WithField("user_id", userID).Warn("endpoint uniqueness guard fired on upsert, retrying once")
		saved, err = s.repo.Upsert(ctx, sub)
	}
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// Unregister deletes the endpoint if it exists.
func (s *SubscriptionService) Unregister(ctx context.Context, endpoint string) error {
	if endpoint == "" {
		return apperrors.Invalid("endpoint is required")
	}
	_, err := s.repo.DeleteByEndpoint(ctx, endpoint)
	return err
}

// RemoveDead deletes a subscription after a terminal delivery failure, unless the
// endpoint was re-registered after sub was read.
func (s *SubscriptionService) RemoveDead(ctx context.Context, sub models.PushSubscription) (bool, error) {
	return s.repo.DeleteStale(ctx, sub.Endpoint, sub.UpdatedAt)
}

func (s *SubscriptionService) ListForUser(ctx context.Context, userID models.UserID) ([]models.PushSubscription, error) {
	return s.repo.ListByUserID(ctx, userID)
}

// RemoveAllFor deletes all subscriptions of userID. Called on account deletion.
func (s *SubscriptionService) RemoveAllFor(ctx context.Context, userID models.UserID) (int64, error) {
	removed, err := s.repo.DeleteAllForUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	s.log.WithFields(logrus.Fields{"user_id": userID, "removed": removed}).Info("removed push subscriptions")
	return removed, nil
}
