package services

import (
	"context"

	"github.com/anonto42/nano-midea/relay/internal/apperrors"
	"github.com/anonto42/nano-midea/relay/internal/models"
	"github.com/anonto42/nano-midea/relay/internal/repositories"
	"github.com/sirupsen/logrus"
)

// PurgeReport counts what was removed for a deleted account.
type PurgeReport struct {
	UserID        models.UserID `json:"user_id"`
	Edges         int64         `json:"edges_removed"`
	Subscriptions int64         `json:"subscriptions_removed"`
	Topics        int64         `json:"topic_memberships_removed"`
}

// AccountService removes everything referencing a user that is being deleted.
type AccountService struct {
	follows       *FollowService
	subscriptions *SubscriptionService
	topics        repositories.TopicRepository
	log           *logrus.Entry
}

// NewAccountService creates an AccountService. topics may be nil when topic membership is disabled.
func NewAccountService(follows *FollowService, subscriptions *SubscriptionService, topics repositories.TopicRepository, log *logrus.Logger) *AccountService {
	return &AccountService{
		follows:       follows,
		subscriptions: subscriptions,
		topics:        topics,
		log:           log.WithField("component", "account_service"),
	}
}

// Purge is safe to repeat; a second call removes nothing.
func (s *AccountService) Purge(ctx context.Context, userID models.UserID) (*PurgeReport, error) {
	if userID == "" {
		return nil, apperrors.Invalid("user id is required")
	}
	report := &PurgeReport{UserID: userID}

	var err error
	if report.Edges, err = s.follows.RemoveAllEdgesFor(ctx, userID); err != nil {
		return report, err
	}
	if report.Subscriptions, err = s.subscriptions.RemoveAllFor(ctx, userID); err != nil {
		return report, err
	}
	if s.topics != nil {
		if report.Topics, err = s.topics.RemoveUser(ctx, userID); err != nil {
			return report, err
		}
	}

	s.log.WithFields(logrus.Fields{
		"user_id":       userID,
		"edges":         report.Edges,
		"subscriptions": report.Subscriptions,
		"topics":        report.Topics,
	}).Info("account references purged")
	return report, nil
}
