package models

import (
	"encoding/json"

	"gorm.io/gorm"
)

// Series is one catalog entry (a "book" upstream).
type Series struct {
	BookID       string `gorm:"primaryKey" json:"bookId"`
	BookName     string `json:"bookName"`
	Cover        string `json:"cover"`
	Introduction string `json:"introduction"`
	// Declared total, may disagree with the actually retrievable count.
	ChapterCount int    `json:"chapterCount"`
	Tags         string `json:"tags"` // comma-joined for storage
	// Recommendation/experiment provenance. Opaque, passed through unchanged,
	// never persisted.
	BookSource json.RawMessage `gorm:"-" json:"bookSource,omitempty"`
}

// Episode is one playable unit, assembled from the paginated chapter listing
// and backfilled positionally from the detail listing. Never persisted.
type Episode struct {
	ChapterID    string        `json:"chapterId"`
	ChapterIndex int           `json:"chapterIndex"`
	ChapterName  string        `json:"chapterName"`
	ChapterImg   string        `json:"chapterImg"`
	Duration     int           `json:"viewingDuration"`
	IsCharge     int           `json:"isCharge"`
	IsPay        int           `json:"isPay"`
	SizeList     []SizeVariant `json:"chapterSizeVos,omitempty"`
	CDNList      []CDNSource   `json:"cdnList,omitempty"`
	// Resolved playable URL; empty when no variant is available.
	VideoURL string `json:"videoUrl"`
}

// EpisodeMeta is the detail listing's per-episode record: ordering and charge
// flags, no playback URLs.
type EpisodeMeta struct {
	ChapterID    string        `json:"chapterId"`
	ChapterIndex int           `json:"chapterIndex"`
	ChapterName  string        `json:"chapterName"`
	IsCharge     int           `json:"isCharge"`
	IsPay        int           `json:"isPay"`
	SizeList     []SizeVariant `json:"chapterSizeVos,omitempty"`
}

// CDNSource is one delivery network offering quality variants of an episode.
type CDNSource struct {
	CDNDomain     string         `json:"cdnDomain"`
	IsDefault     int            `json:"isDefault"`
	VideoPathList []VideoVariant `json:"videoPathList"`
}

type VideoVariant struct {
	Quality     int    `json:"quality"`
	VideoPath   string `json:"videoPath"`
	IsDefault   int    `json:"isDefault"`
	IsVipEquity int    `json:"isVipEquity"`
}

type SizeVariant struct {
	Quality int   `json:"quality"`
	Size    int64 `json:"size"`
}

// --- API response envelopes ---

type ListResponse struct {
	Status string   `json:"status"`
	Total  int      `json:"total"`
	Data   []Series `json:"data"`
}

type SearchResponse struct {
	Status string   `json:"status"`
	Query  string   `json:"query,omitempty"`
	Data   []Series `json:"data"`
}

type DetailResponse struct {
	Status string `json:"status"`
	Series Series `json:"series"`
	// Retrievable count; smaller than ChapterCount when pages were lost.
	EpisodeCount int       `json:"episodeCount"`
	Episodes     []Episode `json:"episodes"`
}

type StreamResponse struct {
	Status  string  `json:"status"`
	BookID  string  `json:"bookId"`
	Episode Episode `json:"episode"`
}

// MigrateSeries migrates the catalog table.
func MigrateSeries(db *gorm.DB) error {
	return db.AutoMigrate(&Series{})
}
