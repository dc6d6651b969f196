package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Sternrassler/artic-table/internal/testutil"
	"github.com/Sternrassler/artic-table/pkg/artwork"
	"github.com/Sternrassler/artic-table/pkg/client"
	"github.com/rs/zerolog"
)

func newServeClient(t *testing.T, mock *testutil.MockAPI) *client.Client {
	t.Helper()

	cfg := client.DefaultConfig(nil, "artic-table-test/1.0 (test@example.com)")
	cfg.BaseURL = mock.BaseURL()
	cfg.PageLimit = 3

	c, err := client.New(cfg)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestPageHandler(t *testing.T) {
	mock := testutil.NewMockAPI(7)
	defer mock.Close()
	mock.FailPage(2, http.StatusInternalServerError, -1)
	mock.FailPage(9, http.StatusNotFound, -1)

	handler := pageHandler(newServeClient(t, mock), 5*time.Second, zerolog.Nop())

	tests := []struct {
		name       string
		method     string
		target     string
		wantStatus int
	}{
		{"default page", http.MethodGet, "/artworks", http.StatusOK},
		{"explicit page", http.MethodGet, "/artworks?page=3", http.StatusOK},
		{"invalid page", http.MethodGet, "/artworks?page=abc", http.StatusBadRequest},
		{"page zero", http.MethodGet, "/artworks?page=0", http.StatusBadRequest},
		{"upstream error", http.MethodGet, "/artworks?page=2", http.StatusBadGateway},
		{"upstream not found", http.MethodGet, "/artworks?page=9", http.StatusNotFound},
		{"wrong method", http.MethodPost, "/artworks", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.target, nil)
			w := httptest.NewRecorder()

			handler(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (body: %s)", w.Code, tt.wantStatus, w.Body.String())
			}
		})
	}
}

func TestPageHandler_Body(t *testing.T) {
	mock := testutil.NewMockAPI(7)
	defer mock.Close()

	handler := pageHandler(newServeClient(t, mock), 5*time.Second, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/artworks?page=3", nil)
	w := httptest.NewRecorder()
	handler(w, req)

	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	var page artwork.Page
	if err := json.Unmarshal(w.Body.Bytes(), &page); err != nil {
		t.Fatalf("body is not a page: %v\n%s", err, w.Body.String())
	}
	if page.Pagination.CurrentPage != 3 || page.Pagination.TotalPages != 3 {
		t.Errorf("pagination = %+v", page.Pagination)
	}
	if len(page.Records) != 1 || page.Records[0].ID != 7 {
		t.Errorf("records = %+v, want only id 7", page.Records)
	}
}

func TestUpstreamStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"plain error", errors.New("boom"), http.StatusBadGateway},
		{"blocked", &client.FetchError{Page: 1, Reason: client.FetchReasonBlocked, Err: client.ErrRateLimitBlocked}, http.StatusTooManyRequests},
		{"not found", &client.FetchError{Page: 1, Reason: client.FetchReasonStatus, StatusCode: 404}, http.StatusNotFound},
		{"server error", &client.FetchError{Page: 1, Reason: client.FetchReasonStatus, StatusCode: 503}, http.StatusBadGateway},
		{"timeout", &client.FetchError{Page: 1, Reason: client.FetchReasonNetwork, Err: context.DeadlineExceeded}, http.StatusGatewayTimeout},
		{"decode", &client.FetchError{Page: 1, Reason: client.FetchReasonDecode, StatusCode: 200}, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := upstreamStatus(tt.err); got != tt.want {
				t.Errorf("upstreamStatus() = %d, want %d", got, tt.want)
			}
		})
	}
}
