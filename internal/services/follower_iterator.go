package services

import (
	"context"

	"github.com/anonto42/nano-midea/relay/internal/models"
)

// FollowerIterator walks a user's followers page by page. Only one page is held
// in memory. It can be resumed from Cursor() with ResumeFollowers.
//
//	it := svc.Followers(userID, 100)
//	for it.Next(ctx) {
//		use(it.UserID())
//	}
//	if err := it.Err(); err != nil { ... }
type FollowerIterator struct {
	svc    *FollowService
	userID models.UserID
	page   Page

	buf     []models.FollowEntry
	current models.UserID
	fetched bool
	hasMore bool
	err     error
}

// ResumeFollowers returns an iterator that continues after cursor.
func (s *FollowService) ResumeFollowers(userID models.UserID, pageSize int, cursor string) *FollowerIterator {
	it := s.Followers(userID, pageSize)
	it.page.Cursor = cursor
	return it
}

// Next advances to the next follower, fetching the next page when the buffer is empty.
func (it *FollowerIterator) Next(ctx context.Context) bool {
	if it.err != nil {
		return false
	}
	for len(it.buf) == 0 {
		if it.fetched && !it.hasMore {
			return false
		}
		page, err := it.svc.ListFollowers(ctx, it.userID, it.page)
		if err != nil {
			it.err = err
			return false
		}
		it.fetched = true
		it.hasMore = page.HasMore
		it.page.Cursor = page.NextCursor
		it.buf = page.Entries
		if len(it.buf) == 0 && !it.hasMore {
			return false
		}
	}
	it.current = it.buf[0].UserID
	it.buf = it.buf[1:]
	return true
}

func (it *FollowerIterator) UserID() models.UserID { return it.current }

func (it *FollowerIterator) Err() error { return it.err }

// Cursor is the position after the last fetched page. Followers still buffered
// from that page are not covered by it.
func (it *FollowerIterator) Cursor() string { return it.page.Cursor }
