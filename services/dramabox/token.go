package dramabox

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/dawamr/dramabox-astro/logging"
)

// HeaderProvider supplies the forged auth headers the upstream API expects.
// Token acquisition, refresh and storage live entirely behind this boundary.
type HeaderProvider interface {
	Headers() (map[string]string, error)
	// Invalidate drops any cached credentials so the next Headers call
	// fetches fresh ones. Called after an upstream 401.
	Invalidate()
}

// StaticHeaders is a fixed header set, handy for tests.
type StaticHeaders map[string]string

func (h StaticHeaders) Headers() (map[string]string, error) { return h, nil }
func (StaticHeaders) Invalidate()                           {}

// TokenClient obtains a token/device-id pair from a token endpoint and caches
// the derived header map until it is invalidated.
type TokenClient struct {
	endpoint string
	client   *http.Client
	log      *logging.Logger

	mu     sync.Mutex
	cached map[string]string
}

func NewTokenClient(endpoint string, log *logging.Logger) *TokenClient {
	return &TokenClient{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 15 * time.Second},
		log:      log.WithSource("token"),
	}
}

type tokenResponse struct {
	Data struct {
		Token    string `json:"token"`
		DeviceID string `json:"deviceId"`
	} `json:"data"`
}

func (t *TokenClient) Headers() (map[string]string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cached != nil {
		return t.cached, nil
	}

	resp, err := t.client.Get(t.endpoint)
	if err != nil {
		return nil, fmt.Errorf("token endpoint: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token endpoint status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("token endpoint read: %w", err)
	}

	var tok tokenResponse
	if err := json.Unmarshal(body, &tok); err != nil {
		return nil, fmt.Errorf("token endpoint decode: %w", err)
	}
	if tok.Data.Token == "" || tok.Data.DeviceID == "" {
		return nil, fmt.Errorf("token endpoint returned empty credentials")
	}

	t.cached = forgeHeaders(tok.Data.Token, tok.Data.DeviceID)
	t.log.Info("issued upstream credentials", map[string]interface{}{"deviceId": tok.Data.DeviceID})
	return t.cached, nil
}

func (t *TokenClient) Invalidate() {
	t.mu.Lock()
	t.cached = nil
	t.mu.Unlock()
	t.log.Warn("upstream credentials invalidated")
}

// forgeHeaders builds the app-equivalent header set the upstream checks on
// every call.
func forgeHeaders(token, deviceID string) map[string]string {
	return map[string]string{
		"tn":               "Bearer " + token,
		"device-id":        deviceID,
		"version":          "430",
		"vn":               "4.3.0",
		"cid":              "DRA1000042",
		"package-name":     "com.storymatrix.drama",
		"apn":              "1",
		"language":         "in",
		"current-language": "in",
		"p":                "43",
		"User-Agent":       "Mozilla/5.0 (Linux; Android 11; Pixel 5) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Mobile Safari/537.36",
		"Content-Type":     "application/json",
	}
}
