package models

import (
	"time"

	"gorm.io/gorm"
)

// WatchHistory remembers the last episode an anonymous client watched per
// series. UID is a client-generated opaque id, not an account.
type WatchHistory struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UID        string    `gorm:"index;not null" json:"uid"`
	BookID     string    `gorm:"index;not null" json:"bookId"`
	EpisodeIdx int       `json:"episodeIdx"`
	UpdatedAt  time.Time `json:"updatedAt"`

	Series Series `gorm:"foreignKey:BookID;references:BookID" json:"series"`
}

func MigrateHistory(db *gorm.DB) error {
	return db.AutoMigrate(&WatchHistory{})
}
