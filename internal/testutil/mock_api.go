// Package testutil provides a mock artworks API for tests.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"
)

// APIPath is the path prefix served by MockAPI; use URL()+APIPath as the
// client base URL.
const APIPath = "/api/v1"

// MockRecord is one artwork served by MockAPI.
type MockRecord struct {
	ID            int         `json:"id"`
	Title         string      `json:"title"`
	PlaceOfOrigin interface{} `json:"place_of_origin"`
	ArtistDisplay string      `json:"artist_display"`
	Inscriptions  interface{} `json:"inscriptions"`
	DateStart     interface{} `json:"date_start"`
	DateEnd       interface{} `json:"date_end"`
}

type failure struct {
	status int
	count  int
}

// MockAPI is a paginated artworks endpoint backed by an in-memory list.
type MockAPI struct {
	server *httptest.Server

	mu          sync.RWMutex
	records     []MockRecord
	failures    map[int]*failure
	delays      map[int]time.Duration
	rawBodies   map[int]string
	remaining   int
	maxAge      int
	requests    map[int]int
	conditional int
	lastHeader  http.Header
}

// NewMockAPI starts a server holding n generated records with ids 1..n.
func NewMockAPI(n int) *MockAPI {
	m := &MockAPI{
		failures:  make(map[int]*failure),
		delays:    make(map[int]time.Duration),
		rawBodies: make(map[int]string),
		requests:  make(map[int]int),
		remaining: -1,
		maxAge:    300,
	}
	m.SetRecords(GenerateRecords(n))

	mux := http.NewServeMux()
	mux.HandleFunc(APIPath+"/artworks", m.handleArtworks)
	m.server = httptest.NewServer(mux)
	return m
}

// GenerateRecords builds n records with ids 1..n. Every third record has
// null optional fields and numeric dates, like the real API.
func GenerateRecords(n int) []MockRecord {
	records := make([]MockRecord, n)
	for i := range records {
		id := i + 1
		r := MockRecord{
			ID:            id,
			Title:         fmt.Sprintf("Artwork %d", id),
			PlaceOfOrigin: "Chicago",
			ArtistDisplay: fmt.Sprintf("Artist %d", id),
			Inscriptions:  fmt.Sprintf("Inscription %d", id),
			DateStart:     1800 + id,
			DateEnd:       1810 + id,
		}
		if id%3 == 0 {
			r.PlaceOfOrigin = nil
			r.Inscriptions = nil
			r.DateEnd = nil
		}
		records[i] = r
	}
	return records
}

// URL returns the server root.
func (m *MockAPI) URL() string {
	return m.server.URL
}

// BaseURL returns the API root to configure clients with.
func (m *MockAPI) BaseURL() string {
	return m.server.URL + APIPath
}

// Close shuts the server down.
func (m *MockAPI) Close() {
	m.server.Close()
}

// SetRecords replaces the served records.
func (m *MockAPI) SetRecords(records []MockRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = records
}

// FailPage makes the next count requests for page answer with status.
// A count of -1 fails forever.
func (m *MockAPI) FailPage(page, status, count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[page] = &failure{status: status, count: count}
}

// DelayPage delays every response for page.
func (m *MockAPI) DelayPage(page int, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delays[page] = d
}

// SetRawBody serves body verbatim for page.
func (m *MockAPI) SetRawBody(page int, body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rawBodies[page] = body
}

// SetRemaining makes responses report remaining quota; -1 omits the
// headers.
func (m *MockAPI) SetRemaining(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.remaining = n
}

// SetMaxAge sets the Cache-Control max-age of successful responses.
func (m *MockAPI) SetMaxAge(secs int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.maxAge = secs
}

// Requests returns how often page was requested.
func (m *MockAPI) Requests(page int) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.requests[page]
}

// TotalRequests returns the number of requests over all pages.
func (m *MockAPI) TotalRequests() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	total := 0
	for _, n := range m.requests {
		total += n
	}
	return total
}

// ConditionalRequests returns the number of requests carrying
// If-None-Match.
func (m *MockAPI) ConditionalRequests() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.conditional
}

// LastHeader returns the headers of the latest request.
func (m *MockAPI) LastHeader() http.Header {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastHeader
}

// Reset clears request counters.
func (m *MockAPI) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = make(map[int]int)
	m.conditional = 0
	m.lastHeader = nil
}

func (m *MockAPI) handleArtworks(w http.ResponseWriter, r *http.Request) {
	page := atoiDefault(r.URL.Query().Get("page"), 1)
	limit := atoiDefault(r.URL.Query().Get("limit"), 12)
	if limit < 1 {
		limit = 12
	}

	m.mu.Lock()
	m.requests[page]++
	m.lastHeader = r.Header.Clone()
	if r.Header.Get("If-None-Match") != "" {
		m.conditional++
	}
	delay := m.delays[page]
	failStatus := 0
	if f, ok := m.failures[page]; ok && f.count != 0 {
		failStatus = f.status
		if f.count > 0 {
			f.count--
		}
	}
	raw, hasRaw := m.rawBodies[page]
	remaining := m.remaining
	cacheControl := fmt.Sprintf("max-age=%d", m.maxAge)
	records := m.records
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}

	if remaining >= 0 {
		w.Header().Set("X-RateLimit-Limit", "60")
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	}

	if failStatus != 0 {
		w.WriteHeader(failStatus)
		w.Write([]byte(`{"status": "error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if hasRaw {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(raw))
		return
	}

	etag := fmt.Sprintf(`"p%d-l%d-n%d"`, page, limit, len(records))
	if r.Header.Get("If-None-Match") == etag {
		w.Header().Set("Cache-Control", cacheControl)
		w.WriteHeader(http.StatusNotModified)
		return
	}

	totalPages := (len(records) + limit - 1) / limit
	if totalPages == 0 {
		totalPages = 1
	}
	offset := (page - 1) * limit
	data := []MockRecord{}
	if offset < len(records) {
		end := offset + limit
		if end > len(records) {
			end = len(records)
		}
		data = records[offset:end]
	}

	body := map[string]interface{}{
		"pagination": map[string]interface{}{
			"total":        len(records),
			"limit":        limit,
			"offset":       offset,
			"total_pages":  totalPages,
			"current_page": page,
		},
		"data": data,
	}

	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", cacheControl)
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(body)
}

func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
