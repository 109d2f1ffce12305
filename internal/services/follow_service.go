package services

import (
	"context"

	"github.com/anonto42/nano-midea/relay/internal/apperrors"
	"github.com/anonto42/nano-midea/relay/internal/models"
	"github.com/anonto42/nano-midea/relay/internal/repositories"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Page selects one page of a followers/following listing.
type Page struct {
	Cursor string
	Limit  int
}

func (p Page) limit() int {
	switch {
	case p.Limit <= 0:
		return DefaultPageSize
	case p.Limit > MaxPageSize:
		return MaxPageSize
	default:
		return p.Limit
	}
}

// FollowService enforces the follow graph rules on top of a FollowRepository.
// Follow and Unfollow are idempotent; duplicate edges are prevented by the store.
type FollowService struct {
	repo repositories.FollowRepository
	log  *logrus.Entry
}

func NewFollowService(repo repositories.FollowRepository, log *logrus.Logger) *FollowService {
	return &FollowService{repo: repo, log: log.WithField("component", "follow_service")}
}

// Follow makes followerID follow followingID. Following an existing edge succeeds without change.
func (s *FollowService) Follow(ctx context.Context, followerID, followingID models.UserID) error {
	if followerID == "" || followingID == "" {
		return apperrors.Invalid("user id is required")
	}
	if followerID == followingID {
		return apperrors.Invalid("users cannot follow themselves")
	}

	created, err := s.repo.CreateFollow(ctx, followerID, followingID)
	if errors.Is(err, apperrors.ErrConstraintViolation) {
		s.log.WithFields(logrus.Fields{
			"follower_id":  followerID,
			"following_id": followingID,
		}).Warn("unique follow guard fired on upsert, retrying once")
		created, err = s.repo.CreateFollow(ctx, followerID, followingID)
		if errors.Is(err, apperrors.ErrConstraintViolation) {
			// the edge exists, which is all Follow promises
			return nil
		}
	}
	if err != nil {
		return err
	}

	if created {
		s.log.WithFields(logrus.Fields{"follower_id": followerID, "following_id": followingID}).Debug("follow edge created")
	}
	return nil
}

// Unfollow removes the edge if present.
func (s *FollowService) Unfollow(ctx context.Context, followerID, followingID models.UserID) error {
	if followerID == "" || followingID == "" {
		return apperrors.Invalid("user id is required")
	}
	_, err := s.repo.DeleteFollow(ctx, followerID, followingID)
	return err
}

func (s *FollowService) IsFollowing(ctx context.Context, followerID, followingID models.UserID) (bool, error) {
	return s.repo.IsFollowing(ctx, followerID, followingID)
}

// ListFollowers returns one page of userID's followers, most recent first.
func (s *FollowService) ListFollowers(ctx context.Context, userID models.UserID, page Page) (*models.FollowPage, error) {
	return s.repo.GetFollowers(ctx, userID, page.limit(), page.Cursor)
}

// ListFollowing returns one page of the users userID follows, most recent first.
func (s *FollowService) ListFollowing(ctx context.Context, userID models.UserID, page Page) (*models.FollowPage, error) {
	return s.repo.GetFollowing(ctx, userID, page.limit(), page.Cursor)
}

// RemoveAllEdgesFor deletes every edge touching userID. Called on account deletion.
func (s *FollowService) RemoveAllEdgesFor(ctx context.Context, userID models.UserID) (int64, error) {
	removed, err := s.repo.DeleteAllForUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	s.log.WithFields(logrus.Fields{"user_id": userID, "removed": removed}).Info("removed follow edges")
	return removed, nil
}

func (s *FollowService) FollowerCount(ctx context.Context, userID models.UserID) (int64, error) {
	return s.repo.GetFollowersCount(ctx, userID)
}

func (s *FollowService) FollowingCount(ctx context.Context, userID models.UserID) (int64, error) {
	return s.repo.GetFollowingCount(ctx, userID)
}

// Counts returns both aggregate counts for profile display.
func (s *FollowService) Counts(ctx context.Context, userID models.UserID) (*models.FollowCounts, error) {
	followers, err := s.FollowerCount(ctx, userID)
	if err != nil {
		return nil, err
	}
	following, err := s.FollowingCount(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &models.FollowCounts{UserID: userID, FollowersCount: followers, FollowingCount: following}, nil
}

// Followers returns a lazy iterator over every follower of userID.
func (s *FollowService) Followers(userID models.UserID, pageSize int) *FollowerIterator {
	return &FollowerIterator{svc: s, userID: userID, page: Page{Limit: pageSize}}
}
