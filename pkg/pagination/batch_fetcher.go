package pagination

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Sternrassler/artic-table/pkg/artwork"
	"github.com/rs/zerolog/log"
)

// Config holds batch fetcher configuration
type Config struct {
	// MaxConcurrency is the maximum number of parallel requests.
	// The public API allows 60 req/min per client, so keep this small.
	MaxConcurrency int
	// Timeout per page fetch
	Timeout time.Duration
	// Buffer size for channels (default: estimated total pages)
	BufferSize int
}

// DefaultConfig returns safe default configuration for the artworks API
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: 4,
		Timeout:        15 * time.Second,
		BufferSize:     100,
	}
}

// PageFetcher fetches a single page of artworks. *client.Client implements it.
type PageFetcher interface {
	FetchPage(ctx context.Context, page int) (*artwork.Page, error)
}

// PageResult represents the result of fetching a single page
type PageResult struct {
	PageNumber int
	Page       *artwork.Page
}

// BatchFetcher handles parallel fetching of multiple pages
type BatchFetcher struct {
	fetcher PageFetcher
	config  Config
}

// NewBatchFetcher creates a new batch fetcher
func NewBatchFetcher(fetcher PageFetcher, config Config) *BatchFetcher {
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 4
	}
	if config.Timeout <= 0 {
		config.Timeout = 15 * time.Second
	}
	if config.BufferSize <= 0 {
		config.BufferSize = 100
	}

	return &BatchFetcher{
		fetcher: fetcher,
		config:  config,
	}
}

// FetchRange fetches pages from..to in parallel using a worker pool. A to
// of 0, or one beyond the last page, is clamped to the last page. The
// first page of the range is fetched alone to learn the page count.
//
// On a worker error the pages fetched so far are returned together with
// the error.
func (bf *BatchFetcher) FetchRange(ctx context.Context, from, to int) (map[int]*artwork.Page, error) {
	if from < 1 {
		return nil, fmt.Errorf("invalid page range %d..%d", from, to)
	}
	if to != 0 && to < from {
		return nil, fmt.Errorf("invalid page range %d..%d", from, to)
	}

	start := time.Now()

	first, err := bf.fetcher.FetchPage(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch first page: %w", err)
	}

	last := first.Pagination.TotalPages
	if to != 0 && to < last {
		last = to
	}
	total := last - from + 1
	if total < 1 {
		total = 1
	}

	log.Info().
		Int("from", from).
		Int("to", last).
		Int("total_pages", first.Pagination.TotalPages).
		Msg("Starting parallel page fetch")

	results := map[int]*artwork.Page{from: first}

	// Single page optimization
	if last <= from {
		log.Info().
			Int("pages", 1).
			Dur("duration", time.Since(start)).
			Msg("Fetch complete (single page)")
		return results, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	pageQueue := make(chan int, bf.config.BufferSize)
	pageResults := make(chan PageResult, bf.config.BufferSize)
	errCh := make(chan error, bf.config.MaxConcurrency)

	go func() {
		defer close(pageQueue)
		for page := from + 1; page <= last; page++ {
			select {
			case pageQueue <- page:
			case <-ctx.Done():
				return
			}
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < bf.config.MaxConcurrency; i++ {
		wg.Add(1)
		go bf.worker(ctx, pageQueue, pageResults, errCh, &wg, i)
	}

	go func() {
		wg.Wait()
		close(pageResults)
		close(errCh)
	}()

	fetchedPages := 1
	for result := range pageResults {
		results[result.PageNumber] = result.Page
		fetchedPages++

		if fetchedPages%25 == 0 {
			log.Info().
				Int("fetched", fetchedPages).
				Int("total", total).
				Float64("progress_pct", float64(fetchedPages)/float64(total)*100).
				Msg("Fetch progress")
		}
	}

	if err, ok := <-errCh; ok && err != nil {
		log.Warn().
			Err(err).
			Int("fetched_pages", fetchedPages).
			Int("total_pages", total).
			Msg("Worker error - returning partial results")
		return results, fmt.Errorf("worker error (partial data: %d/%d pages): %w", fetchedPages, total, err)
	}
	if err := ctx.Err(); err != nil && fetchedPages < total {
		return results, fmt.Errorf("fetch cancelled (partial data: %d/%d pages): %w", fetchedPages, total, err)
	}

	log.Info().
		Int("pages", fetchedPages).
		Int("total", total).
		Dur("duration", time.Since(start)).
		Msg("Fetch complete")

	return results, nil
}

// worker processes pages from the queue
func (bf *BatchFetcher) worker(ctx context.Context, pageQueue <-chan int, results chan<- PageResult, errCh chan<- error, wg *sync.WaitGroup, workerID int) {
	defer wg.Done()
	pagesProcessed := 0

	for pageNum := range pageQueue {
		select {
		case <-ctx.Done():
			log.Debug().
				Int("worker_id", workerID).
				Int("pages_processed", pagesProcessed).
				Msg("Worker stopping (context cancelled)")
			return
		default:
		}

		pageCtx, cancel := context.WithTimeout(ctx, bf.config.Timeout)
		page, err := bf.fetcher.FetchPage(pageCtx, pageNum)
		cancel()

		if err != nil {
			log.Warn().
				Err(err).
				Int("worker_id", workerID).
				Int("page", pageNum).
				Msg("Page fetch failed")

			select {
			case errCh <- err:
			default:
			}
			return
		}

		select {
		case results <- PageResult{PageNumber: pageNum, Page: page}:
		case <-ctx.Done():
			log.Debug().
				Int("worker_id", workerID).
				Int("pages_processed", pagesProcessed).
				Msg("Worker stopping (context cancelled after fetch)")
			return
		}

		pagesProcessed++
	}

	if pagesProcessed > 0 {
		log.Debug().
			Int("worker_id", workerID).
			Int("pages_processed", pagesProcessed).
			Msg("Worker completed")
	}
}
