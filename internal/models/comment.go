package models

import (
	"sort"
	"time"
)

// Comment is a remark on a photo. ParentID, when set, points at a top-level comment on the
// same photo; replies are never nested further.
type Comment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PhotoID   uint      `gorm:"not null;index" json:"photo_id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Author    *Profile  `gorm:"foreignKey:UserID;references:UserID" json:"author,omitempty"`
	ParentID  *uint     `gorm:"index" json:"parent_id,omitempty"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	IsHidden  bool      `gorm:"default:false" json:"is_hidden"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsRoot reports whether c is a top-level comment.
func (c *Comment) IsRoot() bool {
	return c.ParentID == nil
}

// CommentThread is a top-level comment with its direct replies, oldest first.
type CommentThread struct {
	Root    Comment   `json:"root"`
	Replies []Comment `json:"replies"`
}

// BuildCommentThreads groups a flat comment list into two-level threads. A reply whose parent
// is itself a reply is attached to that reply's root; a reply whose root is missing is dropped.
// Threads are ordered by root creation time, oldest first.
func BuildCommentThreads(comments []Comment) []CommentThread {
	byID := make(map[uint]Comment, len(comments))
	for _, c := range comments {
		byID[c.ID] = c
	}

	rootOf := func(c Comment) (uint, bool) {
		seen := map[uint]bool{}
		for c.ParentID != nil {
			if seen[c.ID] {
				return 0, false
			}
			seen[c.ID] = true
			parent, ok := byID[*c.ParentID]
			if !ok {
				return 0, false
			}
			c = parent
		}
		return c.ID, true
	}

	index := map[uint]int{}
	threads := make([]CommentThread, 0)
	for _, c := range comments {
		if c.IsRoot() {
			index[c.ID] = len(threads)
			threads = append(threads, CommentThread{Root: c, Replies: []Comment{}})
		}
	}
	for _, c := range comments {
		if c.IsRoot() {
			continue
		}
		rootID, ok := rootOf(c)
		if !ok {
			continue
		}
		i, ok := index[rootID]
		if !ok {
			continue
		}
		threads[i].Replies = append(threads[i].Replies, c)
	}

	sort.SliceStable(threads, func(i, j int) bool {
		return threads[i].Root.CreatedAt.Before(threads[j].Root.CreatedAt)
	})
	for i := range threads {
		replies := threads[i].Replies
		sort.SliceStable(replies, func(a, b int) bool {
			return replies[a].CreatedAt.Before(replies[b].CreatedAt)
		})
	}
	return threads
}
