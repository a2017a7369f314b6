package handlers

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// ProxyAPI forwards a same-origin API call to the upstream drama API with
// forged auth headers, so the browser never sees or needs the credentials.
func (h *Handler) ProxyAPI(c *fiber.Ctx) error {
	path := c.Params("*")
	if path == "" {
		return c.Status(400).JSON(fiber.Map{"status": "error", "message": "Missing upstream path"})
	}

	headers, err := h.headers.Headers()
	if err != nil {
		h.log.Error("header forge failed", map[string]interface{}{"error": err.Error()})
		return c.Status(502).JSON(fiber.Map{"status": "error", "message": "Upstream credentials unavailable"})
	}

	target := h.cfg.UpstreamBase + "/" + path
	if q := string(c.Request().URI().QueryString()); q != "" {
		target += "?" + q
	}

	req, err := http.NewRequest(c.Method(), target, bytes.NewReader(c.Body()))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"status": "error", "message": "Invalid upstream path"})
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	reqID := h.tracker.Begin(c.Method(), "/"+path, "", nil)
	resp, err := h.proxy.Do(req)
	if err != nil {
		h.tracker.Fail(reqID, err)
		return c.Status(502).JSON(fiber.Map{"status": "error", "message": "Failed to reach upstream"})
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		h.tracker.Fail(reqID, err)
		return c.Status(502).JSON(fiber.Map{"status": "error", "message": "Failed to read upstream response"})
	}
	h.tracker.Complete(reqID, resp.StatusCode, nil)

	c.Set("Content-Type", resp.Header.Get("Content-Type"))
	return c.Status(resp.StatusCode).Send(body)
}

// ProxyStream proxies media to bypass CORS. M3U8 playlists are rewritten so
// every segment, key and sub-playlist URI routes back through this endpoint.
func (h *Handler) ProxyStream(c *fiber.Ctx) error {
	targetURL := c.Query("url")
	if targetURL == "" {
		return c.Status(400).SendString("Missing url param")
	}

	req, err := http.NewRequest("GET", targetURL, nil)
	if err != nil {
		return c.Status(400).SendString("Invalid URL")
	}
	// Forward the viewer's User-Agent; some CDNs vary on it.
	req.Header.Set("User-Agent", c.Get("User-Agent"))

	resp, err := h.proxy.Do(req)
	if err != nil {
		return c.Status(502).SendString("Failed to fetch upstream: " + err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return c.Status(resp.StatusCode).SendString("Upstream error")
	}

	c.Set("Access-Control-Allow-Origin", "*")
	c.Set("Content-Type", resp.Header.Get("Content-Type"))

	contentType := resp.Header.Get("Content-Type")
	isPlaylist := strings.Contains(contentType, "mpegurl") ||
		strings.Contains(contentType, "m3u8") ||
		strings.HasSuffix(targetURL, ".m3u8")
	if !isPlaylist {
		// Segments and keys are binary, stream them through untouched.
		return c.Status(resp.StatusCode).SendStream(resp.Body)
	}

	base, _ := url.Parse(targetURL)
	scanner := bufio.NewScanner(resp.Body)
	var sb strings.Builder
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "#") {
			sb.WriteString(line + "\n")
			continue
		}
		if trimmed == "" {
			continue
		}

		absolute := trimmed
		if !strings.HasPrefix(trimmed, "http") {
			if rel, err := url.Parse(trimmed); err == nil {
				absolute = base.ResolveReference(rel).String()
			}
		}
		sb.WriteString(fmt.Sprintf("/api/proxy?url=%s\n", url.QueryEscape(absolute)))
	}
	if err := scanner.Err(); err != nil {
		h.log.Warn("playlist rewrite aborted", map[string]interface{}{"url": targetURL, "error": err.Error()})
	}
	return c.SendString(sb.String())
}
