package models

import "time"

// FollowEdge is a directed follow relationship: FollowerID receives FollowingID's updates.
// The (follower_id, following_id) pair is unique; following_id has its own index so
// "who follows me" stays an index lookup.
type FollowEdge struct {
	ID          uint64    `json:"-" gorm:"primaryKey"`
	FollowerID  UserID    `json:"follower_id" gorm:"size:128;not null;uniqueIndex:idx_follow_edges_pair,priority:1;index:idx_follow_edges_follower,priority:1"`
	FollowingID UserID    `json:"following_id" gorm:"size:128;not null;uniqueIndex:idx_follow_edges_pair,priority:2;index:idx_follow_edges_following,priority:1"`
	CreatedAt   time.Time `json:"created_at" gorm:"not null;index:idx_follow_edges_follower,priority:2;index:idx_follow_edges_following,priority:2"`
}

func (FollowEdge) TableName() string {
	return "follow_edges"
}

// FollowEntry is one user in a followers/following listing.
type FollowEntry struct {
	UserID     UserID    `json:"user_id"`
	FollowedAt time.Time `json:"followed_at"`
}

// FollowPage is a single page of a followers/following listing.
type FollowPage struct {
	Entries    []FollowEntry `json:"entries"`
	NextCursor string        `json:"next_cursor,omitempty"`
	HasMore    bool          `json:"has_more"`
}

// FollowCounts carries the aggregate counts shown on a profile.
type FollowCounts struct {
	UserID         UserID `json:"user_id"`
	FollowersCount int64  `json:"followers_count"`
	FollowingCount int64  `json:"following_count"`
}
