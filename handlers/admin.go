package handlers

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"

	"github.com/dawamr/dramabox-astro/utils"
)

// AdminLogin checks the configured credentials and issues a JWT.
func (h *Handler) AdminLogin(c *fiber.Ctx) error {
	var input struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&input); err != nil {
		return c.Status(400).JSON(fiber.Map{"status": "error", "message": "Invalid input"})
	}

	if h.cfg.AdminPasswordHash == "" {
		h.log.Error("admin login attempted but ADMIN_PASSWORD_HASH is not set")
		return c.Status(500).JSON(fiber.Map{"status": "error", "message": "Server config error"})
	}

	if input.Username != h.cfg.AdminUser ||
		bcrypt.CompareHashAndPassword([]byte(h.cfg.AdminPasswordHash), []byte(input.Password)) != nil {
		return c.Status(401).JSON(fiber.Map{"status": "error", "message": "Invalid credentials"})
	}

	token, err := utils.GenerateToken(input.Username, "admin")
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"status": "error", "message": "Failed to issue token"})
	}
	return c.JSON(fiber.Map{"status": "success", "token": token})
}

// RequireAdmin guards the admin group.
func (h *Handler) RequireAdmin(c *fiber.Ctx) error {
	auth := c.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return c.Status(401).JSON(fiber.Map{"status": "error", "message": "Missing token"})
	}
	token := strings.TrimPrefix(auth, "Bearer ")

	claims, err := utils.ValidateToken(token)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"status": "error", "message": "Unauthorized"})
	}
	if role, _ := claims["role"].(string); role != "admin" {
		return c.Status(403).JSON(fiber.Map{"status": "error", "message": "Forbidden"})
	}
	return c.Next()
}

// GetRequestStats exposes the correlation tracker's live view.
func (h *Handler) GetRequestStats(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "success", "data": h.tracker.Stats()})
}

// GetLogFiles lists the durable log files, newest first.
func (h *Handler) GetLogFiles(c *fiber.Ctx) error {
	entries, err := os.ReadDir(h.cfg.LogDir)
	if err != nil {
		return c.JSON(fiber.Map{"status": "success", "data": []interface{}{}})
	}

	type logFile struct {
		Name     string    `json:"name"`
		Size     int64     `json:"size"`
		Modified time.Time `json:"modified"`
	}
	var files []logFile
	for _, ent := range entries {
		if ent.IsDir() {
			continue
		}
		info, err := ent.Info()
		if err != nil {
			continue
		}
		files = append(files, logFile{
			Name:     filepath.Base(ent.Name()),
			Size:     info.Size(),
			Modified: info.ModTime(),
		})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Modified.After(files[j].Modified) })

	return c.JSON(fiber.Map{"status": "success", "data": files})
}

// ClearCache flushes the response caches.
func (h *Handler) ClearCache(c *fiber.Ctx) error {
	h.listCache.Clear()
	h.detailCache.Clear()
	h.searchCache.Clear()
	h.log.Info("response caches cleared by admin")
	return c.JSON(fiber.Map{"status": "success"})
}
