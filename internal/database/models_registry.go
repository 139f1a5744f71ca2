package database

import "shutterhub/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Profile{},
		&models.UserRole{},
		&models.Photo{},
		&models.PhotoTag{},
		&models.PhotoLike{},
		&models.PhotoRating{},
		&models.Comment{},
		&models.ForumCategory{},
		&models.ForumTopic{},
		&models.ForumReply{},
		&models.MarketplaceListing{},
		&models.Conversation{},
		&models.Message{},
		&models.Notification{},
		&models.Report{},
		&models.Favorite{},
		&models.HomepageSection{},
	}
}
