package pagination

import (
	"context"
	"errors"
	"sync"

	"github.com/Sternrassler/artic-table/pkg/artwork"
	"github.com/Sternrassler/artic-table/pkg/selection"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var (
	pageLoads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "artic_page_loads_total",
		Help: "Page loads by result (ok, error, stale)",
	}, []string{"result"})

	staleResponses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "artic_stale_responses_total",
		Help: "Page responses discarded because a newer fetch was started",
	})

	walkPages = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "artic_selection_walk_pages",
		Help:    "Pages loaded to fill one cross-page selection request",
		Buckets: []float64{0, 1, 2, 3, 5, 10, 20},
	})
)

var (
	// ErrStaleResponse is returned for a page whose fetch was superseded
	// by a newer one. The response is dropped and the view is unchanged.
	ErrStaleResponse = errors.New("stale page response discarded")

	// ErrNoPage is returned when navigating outside the known page range.
	ErrNoPage = errors.New("no such page")
)

// Driver connects a PageFetcher to a selection.Selector. It is safe for
// concurrent use; fetches run without holding the lock.
type Driver struct {
	source PageFetcher
	logger zerolog.Logger

	mu      sync.Mutex
	sel     *selection.Selector
	page    *artwork.Page
	view    selection.PageView
	seq     uint64
	loading bool
}

// NewDriver creates a driver with an empty selection and no page loaded.
func NewDriver(source PageFetcher, logger zerolog.Logger) *Driver {
	return &Driver{
		source: source,
		logger: logger.With().Str("component", "pagination").Logger(),
		sel:    selection.New(),
	}
}

// Load fetches page and displays it. If a cross-page selection is pending
// the following pages are loaded until it is filled.
func (d *Driver) Load(ctx context.Context, page int) error {
	_, _, err := d.walk(ctx, page)
	return err
}

// GoTo loads page after checking it against the known page count.
func (d *Driver) GoTo(ctx context.Context, page int) error {
	d.mu.Lock()
	total := d.view.TotalPages
	d.mu.Unlock()

	if page < 1 || (total > 0 && page > total) {
		return ErrNoPage
	}
	return d.Load(ctx, page)
}

// Next loads the page after the current one.
func (d *Driver) Next(ctx context.Context) error {
	d.mu.Lock()
	view := d.view
	d.mu.Unlock()

	if !view.HasNext() {
		return ErrNoPage
	}
	return d.Load(ctx, view.CurrentPage+1)
}

// Prev loads the page before the current one.
func (d *Driver) Prev(ctx context.Context) error {
	d.mu.Lock()
	current := d.view.CurrentPage
	d.mu.Unlock()

	if current <= 1 {
		return ErrNoPage
	}
	return d.Load(ctx, current-1)
}

// RequestSelection selects the first n rows starting at the top of the
// current page, loading later pages as needed. It returns the final
// transition; its Shortfall counts rows that did not exist. A
// non-positive n does nothing.
//
// If a fetch fails the walk stops and the remaining budget stays
// pending; it resumes on the next page that arrives.
func (d *Driver) RequestSelection(ctx context.Context, n int) (selection.Transition, error) {
	d.mu.Lock()
	tr := d.sel.RequestSelection(n, d.view)
	d.mu.Unlock()

	if !tr.Changed {
		return tr, nil
	}

	d.logger.Info().
		Int("n", n).
		Int("pending", int(tr.Pending)).
		Bool("advance", tr.Advance).
		Msg("Selection requested")

	if !tr.Advance {
		walkPages.Observe(0)
		return tr, nil
	}

	last, walked, err := d.walk(ctx, tr.NextPage)
	walkPages.Observe(float64(walked))
	if err != nil {
		return tr, err
	}
	return last, nil
}

// walk loads page and keeps loading while the selector asks to advance.
// It returns the last transition and the number of pages loaded.
func (d *Driver) walk(ctx context.Context, page int) (selection.Transition, int, error) {
	walked := 0
	for {
		if err := ctx.Err(); err != nil {
			return selection.Transition{}, walked, err
		}

		tr, err := d.load(ctx, page)
		if err != nil {
			return tr, walked, err
		}
		walked++

		if !tr.Advance {
			return tr, walked, nil
		}
		page = tr.NextPage
	}
}

// load performs one fetch and hands the page to the selector.
func (d *Driver) load(ctx context.Context, page int) (selection.Transition, error) {
	d.mu.Lock()
	d.seq++
	seq := d.seq
	d.loading = true
	d.mu.Unlock()

	logger := d.logger.With().Int("page", page).Uint64("seq", seq).Logger()
	logger.Debug().Msg("Loading page")

	result, err := d.source.FetchPage(ctx, page)

	d.mu.Lock()
	defer d.mu.Unlock()

	if seq != d.seq {
		pageLoads.WithLabelValues("stale").Inc()
		staleResponses.Inc()
		logger.Debug().Uint64("current_seq", d.seq).Msg("Discarding stale page response")
		return selection.Transition{}, ErrStaleResponse
	}
	d.loading = false

	if err != nil {
		pageLoads.WithLabelValues("error").Inc()
		logger.Error().Err(err).Msg("Page load failed")
		return selection.Transition{}, err
	}

	d.page = result
	d.view = selection.PageView{
		IDs:         result.IDs(),
		CurrentPage: result.Pagination.CurrentPage,
		TotalPages:  result.Pagination.TotalPages,
	}
	pageLoads.WithLabelValues("ok").Inc()

	logger.Info().
		Int("records", len(result.Records)).
		Int("total_pages", d.view.TotalPages).
		Msg("Page loaded")

	return d.sel.OnPageArrived(d.view), nil
}

// Toggle sets the checked state of one row.
func (d *Driver) Toggle(id int, checked bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sel.ToggleOne(id, checked)
}

// ToggleAll sets every row on the current page, as the header checkbox
// does.
func (d *Driver) ToggleAll(checked bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sel.ToggleAllOnPage(d.view, checked)
}

// AllChecked reports the header checkbox state for the current page.
func (d *Driver) AllChecked() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sel.AllChecked(d.view)
}

// IsSelected reports whether row id is checked.
func (d *Driver) IsSelected(id int) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sel.IsSelected(id)
}

// Selected returns the checked ids in ascending order.
func (d *Driver) Selected() []int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sel.Selected()
}

// State returns a snapshot of the selector state.
func (d *Driver) State() selection.State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sel.Snapshot()
}

// View returns the page on screen. The zero view means nothing is loaded.
func (d *Driver) View() selection.PageView {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.view
}

// Page returns the decoded page on screen, nil before the first load.
func (d *Driver) Page() *artwork.Page {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.page
}

// Loading reports whether a fetch is in flight.
func (d *Driver) Loading() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.loading
}

// Subscribe registers fn for selector events. fn runs with the driver
// lock held and must not call back into the Driver.
func (d *Driver) Subscribe(fn func(selection.Event)) (unsubscribe func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	remove := d.sel.Subscribe(fn)
	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		remove()
	}
}

// Selector returns the underlying selector. Callers must not use it while
// other goroutines use the Driver.
func (d *Driver) Selector() *selection.Selector {
	return d.sel
}
