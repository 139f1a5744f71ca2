package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uintPtr(v uint) *uint { return &v }

func TestBuildCategoryTree_NeverProducesThirdLevel(t *testing.T) {
	categories := []ForumCategory{
		{ID: 1, Name: "Gear", Slug: "gear", SortOrder: 2},
		{ID: 2, Name: "Technique", Slug: "technique", SortOrder: 1},
		{ID: 3, ParentID: uintPtr(1), Name: "Lenses", Slug: "lenses", SortOrder: 2},
		{ID: 4, ParentID: uintPtr(1), Name: "Bodies", Slug: "bodies", SortOrder: 1},
		{ID: 5, ParentID: uintPtr(3), Name: "Vintage lenses", Slug: "vintage-lenses"},
		{ID: 6, ParentID: uintPtr(99), Name: "Orphan", Slug: "orphan"},
	}

	nodes, dropped := BuildCategoryTree(categories)

	require.Len(t, nodes, 2)
	assert.Equal(t, "technique", nodes[0].Root.Slug)
	assert.Equal(t, "gear", nodes[1].Root.Slug)
	require.Len(t, nodes[1].Children, 2)
	assert.Equal(t, "bodies", nodes[1].Children[0].Slug)
	assert.Equal(t, "lenses", nodes[1].Children[1].Slug)
	assert.Empty(t, nodes[0].Children)

	var droppedSlugs []string
	for _, c := range dropped {
		droppedSlugs = append(droppedSlugs, c.Slug)
	}
	assert.ElementsMatch(t, []string{"vintage-lenses", "orphan"}, droppedSlugs)
}

func TestBuildCommentThreads(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	comments := []Comment{
		{ID: 1, PhotoID: 9, Content: "first", CreatedAt: base},
		{ID: 2, PhotoID: 9, Content: "second", CreatedAt: base.Add(time.Minute)},
		{ID: 3, PhotoID: 9, ParentID: uintPtr(1), Content: "reply to first", CreatedAt: base.Add(2 * time.Minute)},
		{ID: 4, PhotoID: 9, ParentID: uintPtr(3), Content: "reply to reply", CreatedAt: base.Add(3 * time.Minute)},
		{ID: 5, PhotoID: 9, ParentID: uintPtr(77), Content: "lost", CreatedAt: base.Add(4 * time.Minute)},
	}

	threads := BuildCommentThreads(comments)

	require.Len(t, threads, 2)
	assert.Equal(t, uint(1), threads[0].Root.ID)
	require.Len(t, threads[0].Replies, 2)
	assert.Equal(t, uint(3), threads[0].Replies[0].ID)
	assert.Equal(t, uint(4), threads[0].Replies[1].ID)
	assert.Equal(t, uint(2), threads[1].Root.ID)
	assert.Empty(t, threads[1].Replies)
}

func TestProfileSuspensionActive(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	assert.False(t, (&Profile{}).SuspensionActive(now))
	assert.True(t, (&Profile{IsSuspended: true}).SuspensionActive(now))
	assert.False(t, (&Profile{IsSuspended: true, SuspendedUntil: &past}).SuspensionActive(now))
	assert.True(t, (&Profile{IsSuspended: true, SuspendedUntil: &future}).SuspensionActive(now))
}
