package pagination

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Sternrassler/artic-table/pkg/artwork"
)

// fakeSource serves pages of the given sizes from memory. Ids start at 1
// and increase across pages.
type fakeSource struct {
	mu       sync.Mutex
	pages    []*artwork.Page
	fails    map[int]error
	gates    map[int]chan struct{}
	requests map[int]int
}

func newFakeSource(sizes ...int) *fakeSource {
	f := &fakeSource{
		fails:    make(map[int]error),
		gates:    make(map[int]chan struct{}),
		requests: make(map[int]int),
	}

	next := 1
	for i, size := range sizes {
		records := make([]artwork.Record, size)
		for j := range records {
			records[j] = artwork.Record{ID: next, Title: artwork.Text(fmt.Sprintf("Artwork %d", next))}
			next++
		}
		f.pages = append(f.pages, &artwork.Page{
			Pagination: artwork.Pagination{
				CurrentPage: i + 1,
				TotalPages:  len(sizes),
				Limit:       size,
			},
			Records: records,
		})
	}
	return f
}

func (f *fakeSource) FetchPage(ctx context.Context, page int) (*artwork.Page, error) {
	f.mu.Lock()
	f.requests[page]++
	gate := f.gates[page]
	err := f.fails[page]
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if err != nil {
		return nil, err
	}
	if page < 1 || page > len(f.pages) {
		return nil, fmt.Errorf("page %d out of range", page)
	}
	return f.pages[page-1], nil
}

func (f *fakeSource) fail(page int, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fails[page] = err
}

// hold blocks fetches of page until the returned function is called.
func (f *fakeSource) hold(page int) (release func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.gates[page] = ch
	return func() { close(ch) }
}

func (f *fakeSource) count(page int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[page]
}

var errBoom = errors.New("boom")
