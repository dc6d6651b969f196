// Package selection tracks checked rows of a paginated table and fills
// "select the first N rows" requests that span several pages.
//
// A Selector owns a Set of checked ids that outlives any single page, and a
// pending Budget that counts rows still to be checked on pages not yet
// visited. The Selector never fetches anything: RequestSelection and
// OnPageArrived return a Transition telling the caller whether to advance
// to the next page.
//
//	sel := selection.New()
//	tr := sel.RequestSelection(30, view)
//	for tr.Advance {
//		view = load(tr.NextPage)
//		tr = sel.OnPageArrived(view)
//	}
//
// A Selector is not safe for concurrent use; the pagination driver
// serializes access to it.
package selection

import (
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var selectedRows = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "artic_selection_rows_selected",
	Help: "Number of rows currently selected",
})

// Budget is the number of rows still to be selected across pages.
type Budget int

// Set maps record id to its checked state. A missing id is unchecked.
type Set map[int]bool

// Has reports whether id is checked.
func (s Set) Has(id int) bool {
	return s[id]
}

// Count returns the number of checked ids.
func (s Set) Count() int {
	n := 0
	for _, checked := range s {
		if checked {
			n++
		}
	}
	return n
}

// IDs returns the checked ids in ascending order.
func (s Set) IDs() []int {
	ids := make([]int, 0, len(s))
	for id, checked := range s {
		if checked {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	return ids
}

// Clone returns a copy of the set.
func (s Set) Clone() Set {
	c := make(Set, len(s))
	for id, checked := range s {
		c[id] = checked
	}
	return c
}

// PageView is the page currently on screen.
type PageView struct {
	// IDs are the record ids in display order.
	IDs []int

	// CurrentPage is 1-based.
	CurrentPage int

	TotalPages int
}

// HasNext reports whether a page follows this one.
func (v PageView) HasNext() bool {
	return v.CurrentPage < v.TotalPages
}

// Phase is the state of a cross-page selection.
type Phase int

const (
	// PhaseIdle means no cross-page selection is pending.
	PhaseIdle Phase = iota

	// PhaseFilling means rows remain to be selected on later pages.
	PhaseFilling
)

// String implements fmt.Stringer.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseFilling:
		return "filling"
	default:
		return "unknown"
	}
}

// State is an explicit snapshot of everything the Selector tracks.
type State struct {
	Selection   Set
	Pending     Budget
	CurrentPage int
	TotalPages  int
}

// Transition is the outcome of RequestSelection or OnPageArrived.
type Transition struct {
	// Changed is false when the call was a no-op.
	Changed bool

	// Pending is the budget carried to the next page (0 when idle).
	Pending Budget

	// Shortfall counts rows that could not be selected because the
	// pages ran out. The request is silently truncated by that amount.
	Shortfall Budget

	// Advance asks the caller to load NextPage and call OnPageArrived.
	Advance  bool
	NextPage int
}

// EventKind names the operation that produced an Event.
type EventKind string

const (
	EventToggle      EventKind = "toggle"
	EventToggleAll   EventKind = "toggle_all"
	EventRequest     EventKind = "request"
	EventPageArrived EventKind = "page_arrived"
)

// Event is delivered to subscribers after every state change.
type Event struct {
	Kind       EventKind
	State      State
	Transition Transition
}

// Selector holds the selection set and the pending cross-page budget.
type Selector struct {
	state     State
	listeners map[int]func(Event)
	nextSub   int
}

// New returns an idle Selector with an empty selection.
func New() *Selector {
	return &Selector{
		state:     State{Selection: make(Set)},
		listeners: make(map[int]func(Event)),
	}
}

// ApplyBudget checks ids in order while budget remains and returns the
// unused budget. Every id visited consumes one unit, including ids that
// were already checked.
func ApplyBudget(ids []int, budget Budget, sel Set) Budget {
	if budget <= 0 {
		return 0
	}
	for _, id := range ids {
		if budget == 0 {
			break
		}
		sel[id] = true
		budget--
	}
	return budget
}

// RequestSelection starts a cross-page selection of n rows beginning with
// the first row of view. It replaces any selection already pending. A
// non-positive n is a no-op.
func (s *Selector) RequestSelection(n int, view PageView) Transition {
	if n <= 0 {
		return Transition{}
	}
	return s.fill(EventRequest, Budget(n), view)
}

// OnPageArrived continues a pending selection on a newly loaded page. It is
// a no-op when nothing is pending.
func (s *Selector) OnPageArrived(view PageView) Transition {
	s.state.CurrentPage = view.CurrentPage
	s.state.TotalPages = view.TotalPages
	if s.state.Pending <= 0 {
		return Transition{}
	}
	return s.fill(EventPageArrived, s.state.Pending, view)
}

func (s *Selector) fill(kind EventKind, budget Budget, view PageView) Transition {
	s.state.CurrentPage = view.CurrentPage
	s.state.TotalPages = view.TotalPages

	remaining := ApplyBudget(view.IDs, budget, s.state.Selection)

	tr := Transition{Changed: true}
	if remaining > 0 && view.HasNext() {
		tr.Pending = remaining
		tr.Advance = true
		tr.NextPage = view.CurrentPage + 1
	} else {
		tr.Shortfall = remaining
	}
	s.state.Pending = tr.Pending

	s.emit(kind, tr)
	return tr
}

// ToggleOne sets the checked state of a single id.
func (s *Selector) ToggleOne(id int, checked bool) {
	s.set(id, checked)
	s.emit(EventToggle, Transition{Changed: true, Pending: s.state.Pending})
}

// ToggleAllOnPage sets every id on the page to checked. Other pages are
// untouched.
func (s *Selector) ToggleAllOnPage(view PageView, checked bool) {
	for _, id := range view.IDs {
		s.set(id, checked)
	}
	s.emit(EventToggleAll, Transition{Changed: true, Pending: s.state.Pending})
}

func (s *Selector) set(id int, checked bool) {
	if checked {
		s.state.Selection[id] = true
		return
	}
	delete(s.state.Selection, id)
}

// AllChecked reports whether every row on the page is checked. It drives
// the header checkbox.
func (s *Selector) AllChecked(view PageView) bool {
	for _, id := range view.IDs {
		if !s.state.Selection.Has(id) {
			return false
		}
	}
	return true
}

// IsSelected reports whether id is checked.
func (s *Selector) IsSelected(id int) bool {
	return s.state.Selection.Has(id)
}

// Selected returns the checked ids in ascending order.
func (s *Selector) Selected() []int {
	return s.state.Selection.IDs()
}

// Pending returns the budget still to be filled on later pages.
func (s *Selector) Pending() Budget {
	return s.state.Pending
}

// Phase returns PhaseFilling while a cross-page selection is pending.
func (s *Selector) Phase() Phase {
	if s.state.Pending > 0 {
		return PhaseFilling
	}
	return PhaseIdle
}

// Snapshot returns a copy of the state that later mutations do not affect.
func (s *Selector) Snapshot() State {
	st := s.state
	st.Selection = s.state.Selection.Clone()
	return st
}

// Subscribe registers fn to receive an Event after every state change.
// The returned function removes the subscription.
func (s *Selector) Subscribe(fn func(Event)) (unsubscribe func()) {
	id := s.nextSub
	s.nextSub++
	s.listeners[id] = fn
	return func() {
		delete(s.listeners, id)
	}
}

func (s *Selector) emit(kind EventKind, tr Transition) {
	selectedRows.Set(float64(s.state.Selection.Count()))
	if len(s.listeners) == 0 {
		return
	}

	ev := Event{Kind: kind, State: s.Snapshot(), Transition: tr}
	ids := make([]int, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		if fn, ok := s.listeners[id]; ok {
			fn(ev)
		}
	}
}
