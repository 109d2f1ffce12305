package repositories

import (
	"github.com/anonto42/nano-midea/relay/internal/models"
	"gorm.io/gorm"
)

// AutoMigrate creates or extends the relational tables and their indexes.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.FollowEdge{},
		&models.PushSubscription{},
	)
}
