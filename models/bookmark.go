package models

import "gorm.io/gorm"

// Bookmark is a series saved to a client's list.
type Bookmark struct {
	gorm.Model
	UID    string `gorm:"index;not null" json:"uid"`
	BookID string `gorm:"index;not null" json:"bookId"`

	Series Series `gorm:"foreignKey:BookID;references:BookID" json:"series"`
}

func MigrateBookmarks(db *gorm.DB) error {
	return db.AutoMigrate(&Bookmark{})
}
