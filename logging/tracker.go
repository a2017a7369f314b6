package logging

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// TrackerOptions tunes the request correlation tracker.
type TrackerOptions struct {
	SlowThreshold     time.Duration // default 3s
	MaxAge            time.Duration // stale-entry eviction window, default 5m
	LogRequests       bool          // log outgoing requests at Begin
	SensitivePatterns []string      // nil selects DefaultSensitivePatterns
	MaxPayloadBytes   int           // response payload truncation, default 10KB
}

// RequestTracker maps opaque request ids to their start context so that the
// matching response or error can be logged with a duration. Entries are
// single-use; anything a client abandons is purged by Sweep.
type RequestTracker struct {
	opts TrackerOptions
	log  *Logger

	mu      sync.Mutex
	pending map[string]pendingRequest
}

type pendingRequest struct {
	Method string
	Target string
	Start  time.Time
	UserID string
}

// TrackerStats is a point-in-time view of live requests, for operational
// visibility only.
type TrackerStats struct {
	Total           int            `json:"total"`
	ByMethod        map[string]int `json:"byMethod"`
	OldestRequestID string         `json:"oldestRequestId,omitempty"`
}

func NewRequestTracker(log *Logger, opts TrackerOptions) *RequestTracker {
	if opts.SlowThreshold <= 0 {
		opts.SlowThreshold = 3 * time.Second
	}
	if opts.MaxAge <= 0 {
		opts.MaxAge = 5 * time.Minute
	}
	if opts.MaxPayloadBytes <= 0 {
		opts.MaxPayloadBytes = 10 * 1024
	}
	return &RequestTracker{
		opts:    opts,
		log:     log,
		pending: make(map[string]pendingRequest),
	}
}

// Begin registers an outgoing request and returns its correlation id. The id
// is timestamp plus random suffix; collisions are negligible but this is not
// a cryptographic token.
func (t *RequestTracker) Begin(method, target, userID string, data map[string]interface{}) string {
	id := fmt.Sprintf("req_%d_%s", time.Now().UnixMilli(), uuid.NewString()[:8])
	t.mu.Lock()
	t.pending[id] = pendingRequest{
		Method: method,
		Target: target,
		Start:  time.Now(),
		UserID: userID,
	}
	t.mu.Unlock()

	if t.opts.LogRequests {
		payload := map[string]interface{}{"method": method, "target": target}
		if data != nil {
			payload["data"] = Redact(normalize(data), t.opts.SensitivePatterns)
		}
		t.log.WithRequest(id, userID).Info("request started", payload)
	}
	return id
}

// take removes and returns the pending entry, making every id single-use.
func (t *RequestTracker) take(id string) (pendingRequest, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.pending[id]
	if ok {
		delete(t.pending, id)
	}
	return p, ok
}

// Complete logs the response for id. Unknown ids, including a second Complete
// for the same id, log a warning and do nothing else.
func (t *RequestTracker) Complete(id string, status int, payload interface{}) {
	p, ok := t.take(id)
	if !ok {
		t.log.Warn("response for unknown request id", map[string]interface{}{"requestId": id})
		return
	}
	duration := time.Since(p.Start)
	reqLog := t.log.WithRequest(id, p.UserID)

	if duration > t.opts.SlowThreshold {
		reqLog.Warn("slow request", map[string]interface{}{
			"method":      p.Method,
			"target":      p.Target,
			"durationMs":  duration.Milliseconds(),
			"thresholdMs": t.opts.SlowThreshold.Milliseconds(),
		})
	}

	data := map[string]interface{}{
		"method":     p.Method,
		"target":     p.Target,
		"status":     status,
		"durationMs": duration.Milliseconds(),
	}
	if payload != nil {
		data["response"] = Truncate(Redact(normalize(payload), t.opts.SensitivePatterns), t.opts.MaxPayloadBytes)
	}
	if status >= 400 {
		reqLog.Error("request failed", data)
	} else {
		reqLog.Info("request completed", data)
	}
}

// Fail logs err for id and drops the tracked entry. Unknown ids warn and
// return, same as Complete.
func (t *RequestTracker) Fail(id string, err error) {
	p, ok := t.take(id)
	if !ok {
		t.log.Warn("error for unknown request id", map[string]interface{}{"requestId": id})
		return
	}
	t.log.WithRequest(id, p.UserID).Error("request errored", map[string]interface{}{
		"method":     p.Method,
		"target":     p.Target,
		"durationMs": time.Since(p.Start).Milliseconds(),
		"error":      err.Error(),
	})
}

// Sweep evicts entries older than MaxAge and returns how many were dropped.
// Clients that never call Complete or Fail would otherwise grow the map
// without bound.
func (t *RequestTracker) Sweep() int {
	cutoff := time.Now().Add(-t.opts.MaxAge)

	type evicted struct {
		id string
		p  pendingRequest
	}
	var stale []evicted

	t.mu.Lock()
	for id, p := range t.pending {
		if p.Start.Before(cutoff) {
			stale = append(stale, evicted{id, p})
			delete(t.pending, id)
		}
	}
	t.mu.Unlock()

	for _, e := range stale {
		t.log.Warn("evicting stale request", map[string]interface{}{
			"requestId": e.id,
			"method":    e.p.Method,
			"target":    e.p.Target,
			"ageMs":     time.Since(e.p.Start).Milliseconds(),
		})
	}
	return len(stale)
}

// Stats returns the live count, a per-method breakdown and the oldest live id.
func (t *RequestTracker) Stats() TrackerStats {
	t.mu.Lock()
	defer t.mu.Unlock()

	stats := TrackerStats{ByMethod: make(map[string]int)}
	var oldest time.Time
	for id, p := range t.pending {
		stats.Total++
		stats.ByMethod[p.Method]++
		if oldest.IsZero() || p.Start.Before(oldest) {
			oldest = p.Start
			stats.OldestRequestID = id
		}
	}
	return stats
}
