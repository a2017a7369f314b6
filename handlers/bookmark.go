package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/dawamr/dramabox-astro/models"
)

// AddBookmark adds a series to the client's list.
func (h *Handler) AddBookmark(c *fiber.Ctx) error {
	var req struct {
		UID    string `json:"uid"`
		BookID string `json:"bookId"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"status": "error", "message": "Invalid input"})
	}
	if req.UID == "" || req.BookID == "" {
		return c.Status(400).JSON(fiber.Map{"status": "error", "message": "Missing uid or bookId"})
	}

	var count int64
	h.db.Model(&models.Bookmark{}).Where("uid = ? AND book_id = ?", req.UID, req.BookID).Count(&count)
	if count > 0 {
		return c.JSON(fiber.Map{"status": "success", "message": "Already in list"})
	}

	bookmark := models.Bookmark{UID: req.UID, BookID: req.BookID}
	if err := h.db.Create(&bookmark).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"status": "error", "message": "Failed to save bookmark"})
	}

	go h.ensureSeries(req.BookID)
	return c.JSON(fiber.Map{"status": "success"})
}

// RemoveBookmark drops a series from the client's list.
func (h *Handler) RemoveBookmark(c *fiber.Ctx) error {
	uid := c.Query("uid")
	bookID := c.Params("bookId")
	if uid == "" || bookID == "" {
		return c.Status(400).JSON(fiber.Map{"status": "error", "message": "Missing params"})
	}

	if err := h.db.Where("uid = ? AND book_id = ?", uid, bookID).Delete(&models.Bookmark{}).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"status": "error", "message": "Database error"})
	}
	return c.JSON(fiber.Map{"status": "success"})
}

// GetBookmarks lists the client's saved series.
func (h *Handler) GetBookmarks(c *fiber.Ctx) error {
	uid := c.Query("uid")
	if uid == "" {
		return c.Status(400).JSON(fiber.Map{"status": "error", "message": "Missing uid"})
	}

	var bookmarks []models.Bookmark
	err := h.db.Preload("Series").Where("uid = ?", uid).Order("created_at desc").Find(&bookmarks).Error
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"status": "error", "message": "Database error"})
	}
	return c.JSON(fiber.Map{"status": "success", "data": bookmarks})
}

// CheckBookmark reports whether one series is bookmarked.
func (h *Handler) CheckBookmark(c *fiber.Ctx) error {
	uid := c.Query("uid")
	bookID := c.Params("bookId")
	if uid == "" || bookID == "" {
		return c.Status(400).JSON(fiber.Map{"status": "error", "message": "Missing params"})
	}

	var count int64
	h.db.Model(&models.Bookmark{}).Where("uid = ? AND book_id = ?", uid, bookID).Count(&count)
	return c.JSON(fiber.Map{"status": "success", "bookmarked": count > 0})
}
