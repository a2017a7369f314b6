package dramabox

import (
	"github.com/dawamr/dramabox-astro/models"
)

// LoadEpisodes returns the series record plus its fully assembled episode
// list. The detail listing goes first because its metadata length is the
// authoritative total that sizes the chapter pagination; the two phases are
// deliberately sequential.
func (c *Client) LoadEpisodes(bookID string) (*models.Series, []models.Episode, error) {
	series, meta, err := c.FetchDetail(bookID)
	if err != nil {
		return nil, nil, err
	}
	if len(meta) == 0 {
		c.log.Warn("detail listing has no episode metadata", map[string]interface{}{"bookId": bookID})
		return series, nil, nil
	}

	chapters := c.FetchAllChapters(bookID, len(meta))
	episodes := mergeEpisodes(chapters, meta)
	for i := range episodes {
		episodes[i].VideoURL = PickPlayableURL(episodes[i].CDNList)
	}
	return series, episodes, nil
}

// mergeEpisodes zips the chapter listing with the detail metadata
// positionally. The chapter listing is the canonical play order and its
// length always wins: only the overlapping prefix is backfilled, trailing
// chapters keep their own fields, and surplus metadata is dropped.
func mergeEpisodes(chapters []models.Episode, meta []models.EpisodeMeta) []models.Episode {
	merged := make([]models.Episode, len(chapters))
	copy(merged, chapters)
	for i := range merged {
		if i >= len(meta) {
			break
		}
		merged[i].ChapterIndex = meta[i].ChapterIndex
		merged[i].IsCharge = meta[i].IsCharge
		merged[i].IsPay = meta[i].IsPay
		merged[i].SizeList = meta[i].SizeList
	}
	return merged
}

// PickPlayableURL resolves one URL per episode. Preference order, in
// decreasing user value: a variant that is both default and non-gated, then
// the first non-gated variant, then the first variant at all. Empty when the
// episode has no source.
func PickPlayableURL(cdns []models.CDNSource) string {
	var firstAny, firstFree string
	for _, cdn := range cdns {
		for _, v := range cdn.VideoPathList {
			if v.VideoPath == "" {
				continue
			}
			if firstAny == "" {
				firstAny = v.VideoPath
			}
			if v.IsVipEquity == 0 {
				if v.IsDefault == 1 {
					return v.VideoPath
				}
				if firstFree == "" {
					firstFree = v.VideoPath
				}
			}
		}
	}
	if firstFree != "" {
		return firstFree
	}
	return firstAny
}
