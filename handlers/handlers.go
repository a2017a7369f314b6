package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/dawamr/dramabox-astro/config"
	"github.com/dawamr/dramabox-astro/logging"
	"github.com/dawamr/dramabox-astro/models"
	"github.com/dawamr/dramabox-astro/services/dramabox"
	"github.com/dawamr/dramabox-astro/utils"
)

// Handler carries every dependency the HTTP layer needs. Constructed once in
// main, no package-level state.
type Handler struct {
	cfg     *config.Config
	db      *gorm.DB
	log     *logging.Logger
	tracker *logging.RequestTracker
	drama   *dramabox.Client
	headers dramabox.HeaderProvider
	proxy   *http.Client

	listCache   *utils.TTLCache[models.ListResponse]
	detailCache *utils.TTLCache[models.DetailResponse]
	searchCache *utils.SearchCache[models.SearchResponse]
}

func NewHandler(cfg *config.Config, db *gorm.DB, log *logging.Logger, tracker *logging.RequestTracker, drama *dramabox.Client, headers dramabox.HeaderProvider) *Handler {
	return &Handler{
		cfg:     cfg,
		db:      db,
		log:     log.WithSource("api"),
		tracker: tracker,
		drama:   drama,
		headers: headers,
		proxy:   &http.Client{Timeout: 60 * time.Second},

		listCache:   utils.NewTTLCache[models.ListResponse](5*time.Minute, 10*time.Minute),
		detailCache: utils.NewTTLCache[models.DetailResponse](5*time.Minute, 10*time.Minute),
		searchCache: utils.NewSearchCache[models.SearchResponse](1000, time.Hour),
	}
}

// GetHome serves one page of the browse catalog.
func (h *Handler) GetHome(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	key := fmt.Sprintf("home:%d", page)
	if cached, ok := h.listCache.Get(key); ok {
		return c.JSON(cached)
	}

	series, err := h.drama.FetchTheater(page)
	if err != nil {
		h.log.Error("theater fetch failed", map[string]interface{}{"page": page, "error": err.Error()})
		return c.Status(502).JSON(fiber.Map{"status": "error", "message": "Failed to fetch from source"})
	}

	resp := models.ListResponse{Status: "success", Total: len(series), Data: series}
	h.listCache.Set(key, resp)
	return c.JSON(resp)
}

// GetSearch queries the upstream suggest endpoint.
func (h *Handler) GetSearch(c *fiber.Ctx) error {
	query := c.Query("q")
	if query == "" {
		return c.Status(400).JSON(fiber.Map{"status": "error", "message": "Missing query param 'q'"})
	}
	if cached, ok := h.searchCache.Get(query); ok {
		return c.JSON(cached)
	}

	series, err := h.drama.Search(query)
	if err != nil {
		h.log.Error("search failed", map[string]interface{}{"query": query, "error": err.Error()})
		return c.Status(502).JSON(fiber.Map{"status": "error", "message": "Failed to fetch from source"})
	}

	resp := models.SearchResponse{Status: "success", Query: query, Data: series}
	h.searchCache.Set(query, resp)
	return c.JSON(resp)
}

// loadDetail assembles (or serves from cache) the full merged episode list
// for one series.
func (h *Handler) loadDetail(bookID string) (models.DetailResponse, error) {
	if cached, ok := h.detailCache.Get(bookID); ok {
		return cached, nil
	}

	series, episodes, err := h.drama.LoadEpisodes(bookID)
	if err != nil {
		return models.DetailResponse{}, err
	}
	resp := models.DetailResponse{
		Status:       "success",
		Series:       *series,
		EpisodeCount: len(episodes),
		Episodes:     episodes,
	}
	h.detailCache.Set(bookID, resp)
	return resp, nil
}

// GetDetail serves a series with its merged, ordered episode list.
func (h *Handler) GetDetail(c *fiber.Ctx) error {
	bookID := c.Params("bookId")
	if bookID == "" {
		return c.Status(400).JSON(fiber.Map{"status": "error", "message": "Missing bookId"})
	}

	resp, err := h.loadDetail(bookID)
	if err != nil {
		if errors.Is(err, dramabox.ErrNotFound) {
			return c.Status(404).JSON(fiber.Map{"status": "error", "message": "Series not found"})
		}
		h.log.Error("detail load failed", map[string]interface{}{"bookId": bookID, "error": err.Error()})
		return c.Status(502).JSON(fiber.Map{"status": "error", "message": "Failed to fetch from source"})
	}
	return c.JSON(resp)
}

// GetStream resolves a single episode's playable URL.
func (h *Handler) GetStream(c *fiber.Ctx) error {
	bookID := c.Query("bookId")
	if bookID == "" {
		return c.Status(400).JSON(fiber.Map{"status": "error", "message": "Missing bookId"})
	}
	index := c.QueryInt("index", 0)

	resp, err := h.loadDetail(bookID)
	if err != nil {
		if errors.Is(err, dramabox.ErrNotFound) {
			return c.Status(404).JSON(fiber.Map{"status": "error", "message": "Series not found"})
		}
		h.log.Error("stream load failed", map[string]interface{}{"bookId": bookID, "error": err.Error()})
		return c.Status(502).JSON(fiber.Map{"status": "error", "message": "Failed to fetch from source"})
	}

	for _, ep := range resp.Episodes {
		if ep.ChapterIndex == index {
			if ep.VideoURL == "" {
				return c.Status(404).JSON(fiber.Map{"status": "error", "message": "Episode has no playable source"})
			}
			return c.JSON(models.StreamResponse{Status: "success", BookID: bookID, Episode: ep})
		}
	}
	return c.Status(404).JSON(fiber.Map{"status": "error", "message": "Episode not found"})
}

// ensureSeries lazily persists a series record so history/bookmark rows can
// preload it. Failures are non-fatal; the row just stays bare.
func (h *Handler) ensureSeries(bookID string) {
	var existing models.Series
	if err := h.db.Where("book_id = ?", bookID).First(&existing).Error; err == nil {
		return
	}
	series, _, err := h.drama.FetchDetail(bookID)
	if err != nil {
		h.log.Warn("lazy series ingest failed", map[string]interface{}{"bookId": bookID, "error": err.Error()})
		return
	}
	h.db.Save(series)
}
