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

// FollowRepository defines the interface for follow edge storage
type FollowRepository interface {
	CreateFollow(ctx context.Context, followerID, followingID models.UserID) (bool, error)
	DeleteFollow(ctx context.Context, followerID, followingID models.UserID) (bool, error)
	IsFollowing(ctx context.Context, followerID, followingID models.UserID) (bool, error)
	GetFollowers(ctx context.Context, userID models.UserID, limit int, cursor string) (*models.FollowPage, error)
	GetFollowing(ctx context.Context, userID models.UserID, limit int, cursor string) (*models.FollowPage, error)
	GetFollowersCount(ctx context.Context, userID models.UserID) (int64, error)
	GetFollowingCount(ctx context.Context, userID models.UserID) (int64, error)
	DeleteAllForUser(ctx context.Context, userID models.UserID) (int64, error)
}

// PostgresFollowRepository implements FollowRepository on gorm. Uniqueness of an
// edge is enforced by idx_follow_edges_pair, never by a read before the insert.
type PostgresFollowRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewPostgresFollowRepository creates a new PostgresFollowRepository
func NewPostgresFollowRepository(db *gorm.DB) *PostgresFollowRepository {
	return &PostgresFollowRepository{db: db, now: time.Now}
}

// CreateFollow inserts the edge unless it already exists. It reports whether a row was written.
func (r *PostgresFollowRepository) CreateFollow(ctx context.Context, followerID, followingID models.UserID) (bool, error) {
	edge := models.FollowEdge{
		FollowerID:  followerID,
		FollowingID: followingID,
		CreatedAt:   r.now().UTC().Truncate(time.Microsecond),
	}

	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "follower_id"}, {Name: "following_id"}},
			DoNothing: true,
		}).
		Create(&edge)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return false, errors.Wrap(apperrors.ErrConstraintViolation, "create follow")
		}
		return false, apperrors.Store("create follow", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *PostgresFollowRepository) DeleteFollow(ctx context.Context, followerID, followingID models.UserID) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("follower_id = ? AND following_id = ?", followerID, followingID).
		Delete(&models.FollowEdge{})
	if res.Error != nil {
		return false, apperrors.Store("delete follow", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *PostgresFollowRepository) IsFollowing(ctx context.Context, followerID, followingID models.UserID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.FollowEdge{}).
		Where("follower_id = ? AND following_id = ?", followerID, followingID).
		Count(&count).Error
	if err != nil {
		return false, apperrors.Store("is following", err)
	}
	return count > 0, nil
}

// GetFollowers returns the users following userID, most recent first.
func (r *PostgresFollowRepository) GetFollowers(ctx context.Context, userID models.UserID, limit int, cursor string) (*models.FollowPage, error) {
	return r.page(ctx, "following_id", userID, limit, cursor, func(e models.FollowEdge) models.UserID {
		return e.FollowerID
	})
}

// GetFollowing returns the users userID follows, most recent first.
func (r *PostgresFollowRepository) GetFollowing(ctx context.Context, userID models.UserID, limit int, cursor string) (*models.FollowPage, error) {
	return r.page(ctx, "follower_id", userID, limit, cursor, func(e models.FollowEdge) models.UserID {
		return e.FollowingID
	})
}

// page runs a keyset query over (created_at, id) descending. One extra row is
// fetched to learn whether another page exists.
func (r *PostgresFollowRepository) page(
	ctx context.Context,
	column string,
	userID models.UserID,
	limit int,
	cursor string,
	peer func(models.FollowEdge) models.UserID,
) (*models.FollowPage, error) {
	q := r.db.WithContext(ctx).Model(&models.FollowEdge{}).Where(column+" = ?", userID)
	if cursor != "" {
		pos, err := decodeCursor(cursor)
		if err != nil {
			return nil, err
		}
		q = q.Where("(created_at < ? OR (created_at = ? AND id < ?))", pos.CreatedAt, pos.CreatedAt, pos.ID)
	}

	var edges []models.FollowEdge
	if err := q.Order("created_at DESC").Order("id DESC").Limit(limit + 1).Find(&edges).Error; err != nil {
		return nil, apperrors.Store("list "+column, err)
	}

	page := &models.FollowPage{Entries: make([]models.FollowEntry, 0, len(edges))}
	if len(edges) > limit {
		page.HasMore = true
		edges = edges[:limit]
	}
	for _, e := range edges {
		page.Entries = append(page.Entries, models.FollowEntry{UserID: peer(e), FollowedAt: e.CreatedAt})
	}
	if page.HasMore {
		last := edges[len(edges)-1]
		page.NextCursor = encodeCursor(last.CreatedAt, last.ID)
	}
	return page, nil
}

func (r *PostgresFollowRepository) GetFollowersCount(ctx context.Context, userID models.UserID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.FollowEdge{}).Where("following_id = ?", userID).Count(&count).Error
	if err != nil {
		return 0, apperrors.Store("count followers", err)
	}
	return count, nil
}

func (r *PostgresFollowRepository) GetFollowingCount(ctx context.Context, userID models.UserID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.FollowEdge{}).Where("follower_id = ?", userID).Count(&count).Error
	if err != nil {
		return 0, apperrors.Store("count following", err)
	}
	return count, nil
}

// DeleteAllForUser removes every edge where userID is either endpoint.
func (r *PostgresFollowRepository) DeleteAllForUser(ctx context.Context, userID models.UserID) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("follower_id = ? OR following_id = ?", userID, userID).
		Delete(&models.FollowEdge{})
	if res.Error != nil {
		return 0, apperrors.Store("delete edges for user", res.Error)
	}
	return res.RowsAffected, nil
}
