package dramabox

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dawamr/dramabox-astro/models"
)

func TestMergeEpisodesBackfillPrefix(t *testing.T) {
	chapters := page(1, 8)
	meta := make([]models.EpisodeMeta, 10)
	for i := range meta {
		meta[i] = models.EpisodeMeta{
			ChapterIndex: i + 100,
			IsCharge:     1,
			IsPay:        1,
			SizeList:     []models.SizeVariant{{Quality: 720, Size: 1000}},
		}
	}

	got := mergeEpisodes(chapters, meta)

	if len(got) != 8 {
		t.Fatalf("merged length = %d, want 8 (chapter list wins)", len(got))
	}
	for i, ep := range got {
		if ep.ChapterIndex != i+100 || ep.IsCharge != 1 || ep.IsPay != 1 || len(ep.SizeList) != 1 {
			t.Errorf("entry %d missing backfill: %+v", i, ep)
		}
		if ep.ChapterID != chapters[i].ChapterID {
			t.Errorf("entry %d lost its own identity: %s", i, ep.ChapterID)
		}
	}
}

func TestMergeEpisodesChapterListLonger(t *testing.T) {
	chapters := page(1, 5)
	meta := []models.EpisodeMeta{
		{ChapterIndex: 100, IsCharge: 1},
		{ChapterIndex: 101, IsCharge: 1},
		{ChapterIndex: 102, IsCharge: 1},
	}

	got := mergeEpisodes(chapters, meta)

	if len(got) != 5 {
		t.Fatalf("merged length = %d, want 5", len(got))
	}
	for i := 0; i < 3; i++ {
		if got[i].ChapterIndex != 100+i {
			t.Errorf("entry %d not backfilled: index=%d", i, got[i].ChapterIndex)
		}
	}
	// Trailing entries keep their original fields, no padding.
	for i := 3; i < 5; i++ {
		if got[i].ChapterIndex != chapters[i].ChapterIndex || got[i].IsCharge != 0 {
			t.Errorf("trailing entry %d was touched: %+v", i, got[i])
		}
	}
}

func TestMergeEpisodesEmptyInputs(t *testing.T) {
	if got := mergeEpisodes(nil, []models.EpisodeMeta{{ChapterIndex: 1}}); len(got) != 0 {
		t.Errorf("merging empty chapters produced %d entries", len(got))
	}
	if got := mergeEpisodes(page(1, 2), nil); len(got) != 2 {
		t.Errorf("merging without metadata lost chapters: %d", len(got))
	}
}

func TestPickPlayableURL(t *testing.T) {
	variant := func(path string, def, vip int) models.VideoVariant {
		return models.VideoVariant{VideoPath: path, IsDefault: def, IsVipEquity: vip}
	}

	tests := []struct {
		name string
		cdns []models.CDNSource
		want string
	}{
		{
			name: "default non-gated beats gated",
			cdns: []models.CDNSource{{VideoPathList: []models.VideoVariant{
				variant("a", 0, 1),
				variant("b", 1, 0),
			}}},
			want: "b",
		},
		{
			name: "first non-gated when no default",
			cdns: []models.CDNSource{{VideoPathList: []models.VideoVariant{
				variant("a", 0, 1),
				variant("b", 0, 0),
				variant("c", 0, 0),
			}}},
			want: "b",
		},
		{
			name: "gated only falls back to first variant",
			cdns: []models.CDNSource{{VideoPathList: []models.VideoVariant{
				variant("a", 0, 1),
				variant("b", 1, 1),
			}}},
			want: "a",
		},
		{
			name: "default found on a later cdn",
			cdns: []models.CDNSource{
				{VideoPathList: []models.VideoVariant{variant("a", 0, 1)}},
				{VideoPathList: []models.VideoVariant{variant("b", 1, 0)}},
			},
			want: "b",
		},
		{
			name: "no sources at all",
			cdns: nil,
			want: "",
		},
		{
			name: "empty paths skipped",
			cdns: []models.CDNSource{{VideoPathList: []models.VideoVariant{
				variant("", 1, 0),
				variant("b", 0, 0),
			}}},
			want: "b",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PickPlayableURL(tt.cdns); got != tt.want {
				t.Errorf("PickPlayableURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

// --- End to end against a fake upstream ---

func envelope(data interface{}) []byte {
	b, _ := json.Marshal(map[string]interface{}{"success": true, "status": 0, "data": data})
	return b
}

func fakeUpstream(t *testing.T, totalEpisodes int, boundaries *[]int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode upstream request: %v", err)
		}

		switch r.URL.Path {
		case "/drama-box/chapterv2/detail":
			meta := make([]map[string]interface{}, totalEpisodes)
			for i := range meta {
				meta[i] = map[string]interface{}{
					"chapterId":    fmt.Sprintf("ch-%d", i+1),
					"chapterIndex": i,
					"isCharge":     boolToInt(i >= 5),
					"isPay":        0,
				}
			}
			w.Write(envelope(map[string]interface{}{
				"book": map[string]interface{}{
					"bookId":       "b1",
					"bookName":     "Test Series",
					"chapterCount": totalEpisodes,
				},
				"chapterList": meta,
			}))

		case "/drama-box/chapterv2/batch/load":
			boundary := int(body["boundaryIndex"].(float64))
			*boundaries = append(*boundaries, boundary)
			count := 6
			if remaining := totalEpisodes - (boundary - 1); remaining < count {
				count = remaining
			}
			chapters := make([]map[string]interface{}, count)
			for i := range chapters {
				chapters[i] = map[string]interface{}{
					"chapterId":    fmt.Sprintf("ch-%d", boundary+i),
					"chapterIndex": boundary + i - 1,
					"chapterName":  fmt.Sprintf("EP %d", boundary+i),
					"cdnList": []map[string]interface{}{{
						"cdnDomain": "cdn.test",
						"videoPathList": []map[string]interface{}{
							{"quality": 720, "videoPath": fmt.Sprintf("https://cdn.test/%d.mp4", boundary+i), "isDefault": 1, "isVipEquity": 0},
						},
					}},
				}
			}
			w.Write(envelope(map[string]interface{}{"chapterList": chapters}))

		default:
			t.Errorf("unexpected upstream path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func TestLoadEpisodesEndToEnd(t *testing.T) {
	var boundaries []int
	srv := fakeUpstream(t, 13, &boundaries)
	defer srv.Close()

	c := New(Options{
		BaseURL:   srv.URL,
		Headers:   StaticHeaders{"tn": "Bearer test"},
		Logger:    quietLogger(),
		PageSize:  6,
		PageDelay: 0,
	})

	series, episodes, err := c.LoadEpisodes("b1")
	if err != nil {
		t.Fatalf("LoadEpisodes: %v", err)
	}
	if series.BookName != "Test Series" || series.ChapterCount != 13 {
		t.Errorf("series = %+v", series)
	}

	wantBoundaries := []int{1, 7, 13}
	if len(boundaries) != 3 || boundaries[0] != 1 || boundaries[1] != 7 || boundaries[2] != 13 {
		t.Errorf("page boundaries = %v, want %v", boundaries, wantBoundaries)
	}

	if len(episodes) != 13 {
		t.Fatalf("episode count = %d, want 13", len(episodes))
	}
	for i, ep := range episodes {
		if ep.ChapterIndex != i {
			t.Errorf("episode %d has index %d after backfill", i, ep.ChapterIndex)
		}
		if ep.VideoURL == "" {
			t.Errorf("episode %d has no playable URL", i)
		}
	}
	// Charge flags came from the detail listing.
	if episodes[0].IsCharge != 0 || episodes[12].IsCharge != 1 {
		t.Errorf("charge flags not backfilled: first=%d last=%d", episodes[0].IsCharge, episodes[12].IsCharge)
	}
}

func TestLoadEpisodesEmptyDetail(t *testing.T) {
	var chapterCalls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/drama-box/chapterv2/detail":
			w.Write(envelope(map[string]interface{}{
				"book":        map[string]interface{}{"bookId": "b1", "bookName": "Empty"},
				"chapterList": []interface{}{},
			}))
		default:
			chapterCalls++
			w.Write(envelope(map[string]interface{}{"chapterList": []interface{}{}}))
		}
	}))
	defer srv.Close()

	c := New(Options{BaseURL: srv.URL, Headers: StaticHeaders{}, Logger: quietLogger()})

	series, episodes, err := c.LoadEpisodes("b1")
	if err != nil {
		t.Fatalf("empty detail must not error: %v", err)
	}
	if series == nil || series.BookID != "b1" {
		t.Errorf("series record lost: %+v", series)
	}
	if len(episodes) != 0 {
		t.Errorf("got %d episodes from empty detail", len(episodes))
	}
	if chapterCalls != 0 {
		t.Errorf("chapter listing was called %d times despite empty detail", chapterCalls)
	}
}

func TestLoadEpisodesUnknownSeries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(envelope(map[string]interface{}{"book": map[string]interface{}{}, "chapterList": []interface{}{}}))
	}))
	defer srv.Close()

	c := New(Options{BaseURL: srv.URL, Headers: StaticHeaders{}, Logger: quietLogger()})

	_, _, err := c.LoadEpisodes("missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
