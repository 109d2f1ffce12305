package repositories

import (
	"context"
	"time"

	"github.com/anonto42/nano-midea/relay/internal/apperrors"
	"github.com/anonto42/nano-midea/relay/internal/models"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SubscriptionRepository defines the interface for push subscription storage
type SubscriptionRepository interface {
	Upsert(ctx context.Context, sub *models.PushSubscription) (*models.PushSubscription, error)
	GetByEndpoint(ctx context.Context, endpoint string) (*models.PushSubscription, error)
	DeleteByEndpoint(ctx context.Context, endpoint string) (bool, error)
	DeleteStale(ctx context.Context, endpoint string, seenUpdatedAt time.Time) (bool, error)
	ListByUserID(ctx context.Context, userID models.UserID) ([]models.PushSubscription, error)
	DeleteAllForUser(ctx context.Context, userID models.UserID) (int64, error)
}

// PostgresSubscriptionRepository implements SubscriptionRepository on gorm
type PostgresSubscriptionRepository struct {
	db *gorm.DB
}

// NewPostgresSubscriptionRepository creates a new PostgresSubscriptionRepository
func NewPostgresSubscriptionRepository(db *gorm.DB) *PostgresSubscriptionRepository {
	return &PostgresSubscriptionRepository{db: db}
}

// Upsert writes sub keyed by endpoint in a single statement. An existing row is
// reassigned to sub.UserID and gets fresh keys, user agent and updated_at; its
// created_at is kept.
func (r *PostgresSubscriptionRepository) Upsert(ctx context.Context, sub *models.PushSubscription) (*models.PushSubscription, error) {
	row := *sub
	row.ID = 0
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "endpoint"}},
			DoUpdates: clause.AssignmentColumns([]string{"user_id", "p256dh", "auth", "user_agent", "updated_at"}),
		}).
		Create(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, errors.Wrap(apperrors.ErrConstraintViolation, "upsert subscription")
		}
		return nil, apperrors.Store("upsert subscription", err)
	}
	return r.GetByEndpoint(ctx, sub.Endpoint)
}

func (r *PostgresSubscriptionRepository) GetByEndpoint(ctx context.Context, endpoint string) (*models.PushSubscription, error) {
	var sub models.PushSubscription
	if err := r.db.WithContext(ctx).Where("endpoint = ?", endpoint).First(&sub).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Wrap(apperrors.ErrNotFound, "subscription")
		}
		return nil, apperrors.Store("get subscription", err)
	}
	return &sub, nil
}

func (r *PostgresSubscriptionRepository) DeleteByEndpoint(ctx context.Context, endpoint string) (bool, error) {
	res := r.db.WithContext(ctx).Where("endpoint = ?", endpoint).Delete(&models.PushSubscription{})
	if res.Error != nil {
		return false, apperrors.Store("delete subscription", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// DeleteStale deletes the endpoint only if it has not been refreshed since
// seenUpdatedAt, so a registration that raced a failed delivery survives.
func (r *PostgresSubscriptionRepository) DeleteStale(ctx context.Context, endpoint string, seenUpdatedAt time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("endpoint = ? AND updated_at <= ?", endpoint, seenUpdatedAt).
		Delete(&models.PushSubscription{})
	if res.Error != nil {
		return false, apperrors.Store("delete stale subscription", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *PostgresSubscriptionRepository) ListByUserID(ctx context.Context, userID models.UserID) ([]models.PushSubscription, error) {
	var subs []models.PushSubscription
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").Order("id ASC").
		Find(&subs).Error
	if err != nil {
		return nil, apperrors.Store("list subscriptions", err)
	}
	return subs, nil
}

func (r *PostgresSubscriptionRepository) DeleteAllForUser(ctx context.Context, userID models.UserID) (int64, error) {
	res := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.PushSubscription{})
	if res.Error != nil {
		return 0, apperrors.Store("delete subscriptions for user", res.Error)
	}
	return res.RowsAffected, nil
}
