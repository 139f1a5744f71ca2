package models

import (
	"sort"
	"time"
)

// ForumCategory is a node of the forum category tree. ParentID, when set, points at a root
// category; the tree never goes deeper than two levels.
type ForumCategory struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ParentID    *uint     `gorm:"index" json:"parent_id,omitempty"`
	Name        string    `gorm:"size:120;not null" json:"name"`
	Slug        string    `gorm:"size:64;not null;uniqueIndex" json:"slug"`
	Description string    `gorm:"type:text" json:"description"`
	Color       string    `gorm:"size:16" json:"color"`
	Icon        string    `gorm:"size:64" json:"icon"`
	SortOrder   int       `gorm:"default:0" json:"sort_order"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// IsRoot reports whether c sits at the top level of the tree.
func (c *ForumCategory) IsRoot() bool {
	return c.ParentID == nil
}

// CategoryNode is a root category with its direct children.
type CategoryNode struct {
	Root     ForumCategory   `json:"category"`
	Children []ForumCategory `json:"children"`
}

// BuildCategoryTree arranges categories into root nodes with their children, both sorted by
// sort_order then name. Categories whose parent is missing or is itself a child are returned
// in dropped so a third level is never produced.
func BuildCategoryTree(categories []ForumCategory) ([]CategoryNode, []ForumCategory) {
	index := map[uint]int{}
	nodes := make([]CategoryNode, 0)
	for _, c := range categories {
		if c.IsRoot() {
			index[c.ID] = len(nodes)
			nodes = append(nodes, CategoryNode{Root: c, Children: []ForumCategory{}})
		}
	}

	var dropped []ForumCategory
	for _, c := range categories {
		if c.IsRoot() {
			continue
		}
		i, ok := index[*c.ParentID]
		if !ok {
			dropped = append(dropped, c)
			continue
		}
		nodes[i].Children = append(nodes[i].Children, c)
	}

	less := func(a, b ForumCategory) bool {
		if a.SortOrder != b.SortOrder {
			return a.SortOrder < b.SortOrder
		}
		return a.Name < b.Name
	}
	sort.SliceStable(nodes, func(i, j int) bool { return less(nodes[i].Root, nodes[j].Root) })
	for i := range nodes {
		children := nodes[i].Children
		sort.SliceStable(children, func(a, b int) bool { return less(children[a], children[b]) })
	}
	return nodes, dropped
}

// ForumTopic is a discussion thread. Category mirrors the slug of CategoryID and is rewritten
// on every save.
type ForumTopic struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	UserID      uint           `gorm:"not null;index" json:"user_id"`
	Author      *Profile       `gorm:"foreignKey:UserID;references:UserID" json:"author,omitempty"`
	CategoryID  uint           `gorm:"not null;index" json:"category_id"`
	Category    string         `gorm:"size:64;index" json:"category"`
	CategoryRow *ForumCategory `gorm:"foreignKey:CategoryID" json:"category_detail,omitempty"`
	Title       string         `gorm:"size:200;not null" json:"title"`
	Content     string         `gorm:"type:text;not null" json:"content"`
	IsPinned    bool           `gorm:"default:false" json:"is_pinned"`
	IsLocked    bool           `gorm:"default:false" json:"is_locked"`
	IsHidden    bool           `gorm:"default:false;index" json:"is_hidden"`
	ReplyCount  int            `gorm:"default:0" json:"reply_count"`
	ViewCount   int            `gorm:"default:0" json:"view_count"`
	LastReplyAt *time.Time     `json:"last_reply_at,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// ForumReply is an answer posted to a topic.
type ForumReply struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	TopicID   uint      `gorm:"not null;index" json:"topic_id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Author    *Profile  `gorm:"foreignKey:UserID;references:UserID" json:"author,omitempty"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	IsHidden  bool      `gorm:"default:false" json:"is_hidden"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
