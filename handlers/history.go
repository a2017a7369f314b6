package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/dawamr/dramabox-astro/models"
)

type historyInput struct {
	UID        string `json:"uid"`
	BookID     string `json:"bookId"`
	EpisodeIdx int    `json:"episodeIdx"`
}

// SaveHistory upserts the last-watched episode for a client/series pair.
func (h *Handler) SaveHistory(c *fiber.Ctx) error {
	var input historyInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(400).JSON(fiber.Map{"status": "error", "message": "Invalid input"})
	}
	if input.UID == "" || input.BookID == "" {
		return c.Status(400).JSON(fiber.Map{"status": "error", "message": "Missing uid or bookId"})
	}

	var history models.WatchHistory
	result := h.db.Where("uid = ? AND book_id = ?", input.UID, input.BookID).First(&history)
	if result.Error != nil {
		history = models.WatchHistory{
			UID:        input.UID,
			BookID:     input.BookID,
			EpisodeIdx: input.EpisodeIdx,
		}
		if err := h.db.Create(&history).Error; err != nil {
			return c.Status(500).JSON(fiber.Map{"status": "error", "message": "Failed to create history"})
		}
	} else {
		history.EpisodeIdx = input.EpisodeIdx
		if err := h.db.Save(&history).Error; err != nil {
			return c.Status(500).JSON(fiber.Map{"status": "error", "message": "Failed to update history"})
		}
	}

	go h.ensureSeries(input.BookID)
	return c.JSON(fiber.Map{"status": "success"})
}

// GetHistory returns the client's most recent history entries with the
// series preloaded.
func (h *Handler) GetHistory(c *fiber.Ctx) error {
	uid := c.Query("uid")
	if uid == "" {
		return c.Status(400).JSON(fiber.Map{"status": "error", "message": "Missing uid"})
	}

	var histories []models.WatchHistory
	err := h.db.Preload("Series").Where("uid = ?", uid).Order("updated_at desc").Limit(20).Find(&histories).Error
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"status": "error", "message": "Database error"})
	}

	return c.JSON(fiber.Map{"status": "success", "data": histories})
}

// CheckHistory returns the saved episode index for one series, if any.
func (h *Handler) CheckHistory(c *fiber.Ctx) error {
	uid := c.Query("uid")
	bookID := c.Query("bookId")
	if uid == "" || bookID == "" {
		return c.Status(400).JSON(fiber.Map{"status": "error", "message": "Missing uid or bookId"})
	}

	var history models.WatchHistory
	if err := h.db.Where("uid = ? AND book_id = ?", uid, bookID).First(&history).Error; err != nil {
		return c.JSON(fiber.Map{"status": "success", "found": false})
	}
	return c.JSON(fiber.Map{"status": "success", "found": true, "episodeIdx": history.EpisodeIdx})
}
