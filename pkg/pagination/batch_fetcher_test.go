package pagination

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNewBatchFetcher_Defaults(t *testing.T) {
	bf := NewBatchFetcher(newFakeSource(1), Config{})

	if bf.config.MaxConcurrency != 4 {
		t.Errorf("MaxConcurrency = %d, want 4", bf.config.MaxConcurrency)
	}
	if bf.config.Timeout != 15*time.Second {
		t.Errorf("Timeout = %v, want 15s", bf.config.Timeout)
	}
	if bf.config.BufferSize != 100 {
		t.Errorf("BufferSize = %d, want 100", bf.config.BufferSize)
	}
}

func TestFetchRange(t *testing.T) {
	tests := []struct {
		name      string
		sizes     []int
		from, to  int
		wantPages []int
	}{
		{"all pages", []int{2, 2, 2, 2}, 1, 0, []int{1, 2, 3, 4}},
		{"sub range", []int{2, 2, 2, 2}, 2, 3, []int{2, 3}},
		{"clamped to last page", []int{2, 2}, 1, 10, []int{1, 2}},
		{"single page", []int{5}, 1, 0, []int{1}},
		{"range of one", []int{2, 2, 2}, 2, 2, []int{2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := newFakeSource(tt.sizes...)
			bf := NewBatchFetcher(src, Config{MaxConcurrency: 3})

			pages, err := bf.FetchRange(context.Background(), tt.from, tt.to)
			if err != nil {
				t.Fatalf("FetchRange() error: %v", err)
			}
			if len(pages) != len(tt.wantPages) {
				t.Fatalf("got %d pages, want %d", len(pages), len(tt.wantPages))
			}
			for _, p := range tt.wantPages {
				page, ok := pages[p]
				if !ok {
					t.Errorf("page %d missing", p)
					continue
				}
				if page.Pagination.CurrentPage != p {
					t.Errorf("pages[%d].CurrentPage = %d", p, page.Pagination.CurrentPage)
				}
				if src.count(p) != 1 {
					t.Errorf("page %d fetched %d times, want 1", p, src.count(p))
				}
			}
		})
	}
}

func TestFetchRange_InvalidRange(t *testing.T) {
	bf := NewBatchFetcher(newFakeSource(2, 2), DefaultConfig())

	for _, r := range [][2]int{{0, 2}, {3, 2}} {
		if _, err := bf.FetchRange(context.Background(), r[0], r[1]); err == nil {
			t.Errorf("FetchRange(%d, %d) expected error", r[0], r[1])
		}
	}
}

func TestFetchRange_FirstPageError(t *testing.T) {
	src := newFakeSource(2, 2)
	src.fail(1, errBoom)
	bf := NewBatchFetcher(src, DefaultConfig())

	pages, err := bf.FetchRange(context.Background(), 1, 0)
	if !errors.Is(err, errBoom) {
		t.Errorf("error = %v, want errBoom", err)
	}
	if pages != nil {
		t.Errorf("pages = %v, want nil", pages)
	}
}

func TestFetchRange_PartialResults(t *testing.T) {
	src := newFakeSource(2, 2, 2, 2)
	src.fail(3, errBoom)
	bf := NewBatchFetcher(src, Config{MaxConcurrency: 1})

	pages, err := bf.FetchRange(context.Background(), 1, 0)
	if !errors.Is(err, errBoom) {
		t.Fatalf("error = %v, want errBoom", err)
	}
	if _, ok := pages[1]; !ok {
		t.Error("page 1 missing from partial results")
	}
	if _, ok := pages[2]; !ok {
		t.Error("page 2 missing from partial results")
	}
	if _, ok := pages[3]; ok {
		t.Error("failed page 3 present in results")
	}
}
