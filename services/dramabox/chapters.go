package dramabox

import (
	"time"

	"github.com/dawamr/dramabox-astro/logging"
	"github.com/dawamr/dramabox-astro/models"
)

// pageFetchFunc fetches one chapter page by 1-based item offset. Injected so
// the pagination loop is testable without a network.
type pageFetchFunc func(bookID string, boundary int) ([]models.Episode, error)

// FetchAllChapters retrieves every chapter of a series by walking the
// paginated listing. Best effort: a failed page is logged and skipped, an
// empty page ends the walk early, and the caller gets whatever accumulated.
func (c *Client) FetchAllChapters(bookID string, totalEpisodes int) []models.Episode {
	return fetchAllChapters(bookID, totalEpisodes, c.pageSize, c.pageDelay, c.fetchChapterPage, c.log)
}

func fetchAllChapters(bookID string, total, pageSize int, delay time.Duration, fetch pageFetchFunc, log *logging.Logger) []models.Episode {
	if total <= 0 || pageSize <= 0 {
		return nil
	}
	totalPages := (total + pageSize - 1) / pageSize

	var chapters []models.Episode
	for page := 1; page <= totalPages; page++ {
		// Cursor convention: 1-based item offset of the page's first episode.
		boundary := (page-1)*pageSize + 1

		items, err := fetch(bookID, boundary)
		if err != nil {
			// Partial results beat total failure for a catalog listing.
			log.Error("chapter page fetch failed", map[string]interface{}{
				"bookId": bookID,
				"page":   page,
				"error":  err.Error(),
			})
			continue
		}
		if len(items) == 0 {
			log.Info("empty chapter page, treating as end of data", map[string]interface{}{
				"bookId": bookID,
				"page":   page,
			})
			break
		}

		chapters = append(chapters, items...)
		log.Info("fetched chapter page", map[string]interface{}{
			"bookId": bookID,
			"page":   page,
			"count":  len(items),
		})

		// Pause between pages to stay under the upstream rate limit, except
		// after the last one.
		if page < totalPages {
			time.Sleep(delay)
		}
	}

	if len(chapters) < total {
		log.Warn("retrieved fewer chapters than declared", map[string]interface{}{
			"bookId":   bookID,
			"declared": total,
			"got":      len(chapters),
		})
	}
	return chapters
}
