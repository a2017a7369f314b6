package dramabox

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dawamr/dramabox-astro/logging"
	"github.com/dawamr/dramabox-astro/models"
)

// ErrNotFound marks a series the upstream does not know.
var ErrNotFound = errors.New("series not found upstream")

// Options configures a Client. Zero values get defaults from New.
type Options struct {
	BaseURL    string
	Headers    HeaderProvider
	Logger     *logging.Logger
	Tracker    *logging.RequestTracker // optional, correlates upstream calls
	HTTPClient *http.Client
	PageSize   int           // chapter listing page size, default 6
	PageDelay  time.Duration // pause between successful page fetches, default 100ms
}

// Client talks to the upstream drama API with forged auth headers.
type Client struct {
	baseURL   string
	headers   HeaderProvider
	log       *logging.Logger
	tracker   *logging.RequestTracker
	client    *http.Client
	pageSize  int
	pageDelay time.Duration
}

func New(opts Options) *Client {
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if opts.PageSize <= 0 {
		opts.PageSize = 6
	}
	if opts.PageDelay < 0 {
		opts.PageDelay = 100 * time.Millisecond
	}
	if opts.Logger == nil {
		opts.Logger = logging.New(logging.Options{Level: logging.LevelInfo})
	}
	return &Client{
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		headers:   opts.Headers,
		log:       opts.Logger,
		tracker:   opts.Tracker,
		client:    opts.HTTPClient,
		pageSize:  opts.PageSize,
		pageDelay: opts.PageDelay,
	}
}

// --- Wire models (private) ---

type apiResponse struct {
	Success bool            `json:"success"`
	Status  int             `json:"status"`
	Data    json.RawMessage `json:"data"` // delay parsing
}

type wireBook struct {
	BookID       string          `json:"bookId"`
	BookName     string          `json:"bookName"`
	Cover        string          `json:"coverWap"`
	Introduction string          `json:"introduction"`
	ChapterCount int             `json:"chapterCount"`
	Tags         []string        `json:"tags"`
	BookSource   json.RawMessage `json:"bookSource"`
}

type detailData struct {
	Book        wireBook             `json:"book"`
	ChapterList []models.EpisodeMeta `json:"chapterList"`
}

type theaterData struct {
	Records []wireBook `json:"records"`
}

type searchData struct {
	SuggestList []wireBook `json:"suggestList"`
}

type chapterPageData struct {
	ChapterList []wireChapter `json:"chapterList"`
}

type wireChapter struct {
	ChapterID    string             `json:"chapterId"`
	ChapterIndex int                `json:"chapterIndex"`
	ChapterName  string             `json:"chapterName"`
	ChapterImg   string             `json:"chapterImg"`
	Duration     int                `json:"viewingDuration"`
	CDNList      []models.CDNSource `json:"cdnList"`
}

// post issues one upstream call with forged headers and decodes the standard
// envelope into out.
func (c *Client) post(path string, payload interface{}, out interface{}) error {
	headers, err := c.headers.Headers()
	if err != nil {
		return fmt.Errorf("forge upstream headers: %w", err)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequest("POST", c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	var reqID string
	if c.tracker != nil {
		reqID = c.tracker.Begin("POST", path, "", nil)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if c.tracker != nil {
			c.tracker.Fail(reqID, err)
		}
		return fmt.Errorf("upstream call %s: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		if c.tracker != nil {
			c.tracker.Fail(reqID, err)
		}
		return fmt.Errorf("read upstream response: %w", err)
	}
	if c.tracker != nil {
		c.tracker.Complete(reqID, resp.StatusCode, nil)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		c.headers.Invalidate()
		return fmt.Errorf("upstream rejected credentials (status 401)")
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("upstream status %d", resp.StatusCode)
	}

	var env apiResponse
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("decode upstream envelope: %w", err)
	}
	if !env.Success && env.Status != 0 {
		return fmt.Errorf("upstream returned status %d", env.Status)
	}
	if len(env.Data) == 0 {
		return fmt.Errorf("upstream returned no data")
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode upstream data: %w", err)
	}
	return nil
}

func toSeries(b wireBook) models.Series {
	return models.Series{
		BookID:       b.BookID,
		BookName:     b.BookName,
		Cover:        b.Cover,
		Introduction: b.Introduction,
		ChapterCount: b.ChapterCount,
		Tags:         strings.Join(b.Tags, ", "),
		BookSource:   b.BookSource,
	}
}

// FetchDetail returns the series record and its ordered metadata list. The
// metadata length is the authoritative episode count for pagination.
func (c *Client) FetchDetail(bookID string) (*models.Series, []models.EpisodeMeta, error) {
	var data detailData
	payload := map[string]interface{}{"bookId": bookID, "index": 1}
	if err := c.post("/drama-box/chapterv2/detail", payload, &data); err != nil {
		return nil, nil, fmt.Errorf("fetch series detail: %w", err)
	}
	if data.Book.BookID == "" {
		return nil, nil, fmt.Errorf("%w: %s", ErrNotFound, bookID)
	}
	series := toSeries(data.Book)
	return &series, data.ChapterList, nil
}

// FetchTheater returns one page of the browse catalog.
func (c *Client) FetchTheater(page int) ([]models.Series, error) {
	if page < 1 {
		page = 1
	}
	var data theaterData
	payload := map[string]interface{}{
		"pageNo":     page,
		"pageSize":   10,
		"channelId":  43,
		"newChannel": true,
	}
	if err := c.post("/drama-box/he001/theaterList", payload, &data); err != nil {
		return nil, fmt.Errorf("fetch theater page %d: %w", page, err)
	}
	series := make([]models.Series, 0, len(data.Records))
	for _, b := range data.Records {
		series = append(series, toSeries(b))
	}
	return series, nil
}

// Search queries the upstream suggest endpoint.
func (c *Client) Search(keyword string) ([]models.Series, error) {
	var data searchData
	payload := map[string]interface{}{"keyword": keyword}
	if err := c.post("/drama-box/search/suggest", payload, &data); err != nil {
		return nil, fmt.Errorf("search %q: %w", keyword, err)
	}
	series := make([]models.Series, 0, len(data.SuggestList))
	for _, b := range data.SuggestList {
		series = append(series, toSeries(b))
	}
	return series, nil
}

// fetchChapterPage fetches one chapter page. boundary is the 1-based item
// offset of the page's first episode.
func (c *Client) fetchChapterPage(bookID string, boundary int) ([]models.Episode, error) {
	var data chapterPageData
	payload := map[string]interface{}{
		"boundaryIndex": boundary,
		"index":         boundary,
		"bookId":        bookID,
		"preLoad":       false,
		"rid":           "",
		"pullCid":       "",
		"loadDirection": 0,
		"startUpKey":    "",
	}
	if err := c.post("/drama-box/chapterv2/batch/load", payload, &data); err != nil {
		return nil, err
	}
	episodes := make([]models.Episode, 0, len(data.ChapterList))
	for _, ch := range data.ChapterList {
		episodes = append(episodes, models.Episode{
			ChapterID:    ch.ChapterID,
			ChapterIndex: ch.ChapterIndex,
			ChapterName:  ch.ChapterName,
			ChapterImg:   ch.ChapterImg,
			Duration:     ch.Duration,
			CDNList:      ch.CDNList,
		})
	}
	return episodes, nil
}
