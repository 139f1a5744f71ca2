package cache

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const (
	PhotoRecsKeyPrefix     = "photo:recs:%d"
	PublicProfileKeyPrefix = "profile:public:%s"
	UserRolesKeyPrefix     = "user:%d:roles"
	ForumCategoriesKey     = "forum:categories"
	HomepageSectionsKey    = "homepage:sections"
)

const (
	PhotoRecsTTL        = 5 * time.Minute
	PublicProfileTTL    = 2 * time.Minute
	UserRolesTTL        = 5 * time.Minute
	ForumCategoriesTTL  = 10 * time.Minute
	HomepageSectionsTTL = 10 * time.Minute
)

func PhotoRecsKey(photoID uint) string {
	return fmt.Sprintf(PhotoRecsKeyPrefix, photoID)
}

func PublicProfileKey(username string) string {
	return fmt.Sprintf(PublicProfileKeyPrefix, strings.ToLower(username))
}

func UserRolesKey(userID uint) string {
	return fmt.Sprintf(UserRolesKeyPrefix, userID)
}

// Invalidate deletes key. It is a no-op without Redis.
func Invalidate(ctx context.Context, keys ...string) {
	if client := GetClient(); client != nil && len(keys) > 0 {
		client.Del(ctx, keys...)
	}
}

func InvalidatePhotoRecs(ctx context.Context, photoID uint) {
	Invalidate(ctx, PhotoRecsKey(photoID))
}

func InvalidatePublicProfile(ctx context.Context, username string) {
	Invalidate(ctx, PublicProfileKey(username))
}

func InvalidateUserRoles(ctx context.Context, userID uint) {
	Invalidate(ctx, UserRolesKey(userID))
}

func InvalidateForumCategories(ctx context.Context) {
	Invalidate(ctx, ForumCategoriesKey)
}

func InvalidateHomepageSections(ctx context.Context) {
	Invalidate(ctx, HomepageSectionsKey)
}
