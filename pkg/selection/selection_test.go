package selection

import (
	"reflect"
	"testing"
)

// pages builds consecutive page views with the given sizes. Ids start at 1
// and increase across pages.
func pages(sizes ...int) []PageView {
	views := make([]PageView, len(sizes))
	next := 1
	for i, size := range sizes {
		ids := make([]int, size)
		for j := range ids {
			ids[j] = next
			next++
		}
		views[i] = PageView{IDs: ids, CurrentPage: i + 1, TotalPages: len(sizes)}
	}
	return views
}

// walk runs a request to completion and returns the pages visited.
func walk(t *testing.T, s *Selector, views []PageView, n int) (visited []int, last Transition) {
	t.Helper()

	tr := s.RequestSelection(n, views[0])
	visited = append(visited, 1)
	for tr.Advance {
		if tr.NextPage > len(views) {
			t.Fatalf("NextPage = %d beyond %d pages", tr.NextPage, len(views))
		}
		visited = append(visited, tr.NextPage)
		tr = s.OnPageArrived(views[tr.NextPage-1])
	}
	return visited, tr
}

func TestApplyBudget(t *testing.T) {
	tests := []struct {
		name       string
		ids        []int
		budget     Budget
		preset     []int
		wantLeft   Budget
		wantChosen []int
	}{
		{
			name:       "budget smaller than page",
			ids:        []int{10, 11, 12, 13},
			budget:     2,
			wantLeft:   0,
			wantChosen: []int{10, 11},
		},
		{
			name:       "budget equal to page",
			ids:        []int{10, 11, 12},
			budget:     3,
			wantLeft:   0,
			wantChosen: []int{10, 11, 12},
		},
		{
			name:       "budget larger than page",
			ids:        []int{10, 11},
			budget:     5,
			wantLeft:   3,
			wantChosen: []int{10, 11},
		},
		{
			name:       "already selected rows still consume budget",
			ids:        []int{10, 11, 12},
			budget:     2,
			preset:     []int{10},
			wantLeft:   0,
			wantChosen: []int{10, 11},
		},
		{
			name:       "zero budget",
			ids:        []int{10, 11},
			budget:     0,
			wantLeft:   0,
			wantChosen: []int{},
		},
		{
			name:       "negative budget",
			ids:        []int{10, 11},
			budget:     -3,
			wantLeft:   0,
			wantChosen: []int{},
		},
		{
			name:       "empty page",
			ids:        nil,
			budget:     4,
			wantLeft:   4,
			wantChosen: []int{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel := make(Set)
			for _, id := range tt.preset {
				sel[id] = true
			}

			left := ApplyBudget(tt.ids, tt.budget, sel)
			if left != tt.wantLeft {
				t.Errorf("ApplyBudget() = %d, want %d", left, tt.wantLeft)
			}
			if got := sel.IDs(); !reflect.DeepEqual(got, tt.wantChosen) {
				t.Errorf("selected = %v, want %v", got, tt.wantChosen)
			}
		})
	}
}

func TestRequestSelection_SinglePage(t *testing.T) {
	for n := 1; n <= 5; n++ {
		s := New()
		view := PageView{IDs: []int{7, 3, 9, 1, 5}, CurrentPage: 1, TotalPages: 4}

		tr := s.RequestSelection(n, view)
		if tr.Advance {
			t.Errorf("n=%d: Advance = true, want false", n)
		}
		if tr.Pending != 0 || s.Pending() != 0 {
			t.Errorf("n=%d: pending = %d/%d, want 0", n, tr.Pending, s.Pending())
		}

		for i, id := range view.IDs {
			if got, want := s.IsSelected(id), i < n; got != want {
				t.Errorf("n=%d: IsSelected(%d) = %v, want %v", n, id, got, want)
			}
		}
	}
}

func TestRequestSelection_CrossPageContinuity(t *testing.T) {
	s := New()
	views := pages(3, 3, 3)

	visited, last := walk(t, s, views, 5)

	if !reflect.DeepEqual(visited, []int{1, 2}) {
		t.Errorf("visited = %v, want [1 2]", visited)
	}
	if got := s.Selected(); !reflect.DeepEqual(got, []int{1, 2, 3, 4, 5}) {
		t.Errorf("Selected() = %v, want [1 2 3 4 5]", got)
	}
	if s.Pending() != 0 || s.Phase() != PhaseIdle {
		t.Errorf("Pending = %d, Phase = %s, want 0 idle", s.Pending(), s.Phase())
	}
	if last.Shortfall != 0 {
		t.Errorf("Shortfall = %d, want 0", last.Shortfall)
	}
}

func TestRequestSelection_ExhaustsPages(t *testing.T) {
	s := New()
	views := pages(3, 3, 2)

	visited, last := walk(t, s, views, 20)

	if !reflect.DeepEqual(visited, []int{1, 2, 3}) {
		t.Errorf("visited = %v, want [1 2 3]", visited)
	}
	if got := len(s.Selected()); got != 8 {
		t.Errorf("selected %d rows, want 8", got)
	}
	if last.Shortfall != 12 {
		t.Errorf("Shortfall = %d, want 12", last.Shortfall)
	}
	if last.Pending != 0 || s.Pending() != 0 {
		t.Errorf("pending should be cleared, got %d/%d", last.Pending, s.Pending())
	}
}

func TestRequestSelection_LastPageClears(t *testing.T) {
	s := New()
	view := PageView{IDs: []int{1, 2}, CurrentPage: 3, TotalPages: 3}

	tr := s.RequestSelection(10, view)
	if tr.Advance {
		t.Error("Advance on the last page")
	}
	if tr.Pending != 0 || tr.Shortfall != 8 {
		t.Errorf("Pending = %d, Shortfall = %d, want 0 and 8", tr.Pending, tr.Shortfall)
	}
}

func TestRequestSelection_NonPositiveIsNoop(t *testing.T) {
	views := pages(3, 3)

	for _, n := range []int{0, -5} {
		s := New()
		s.ToggleOne(42, true)

		// Leave a selection pending to prove it survives the no-op.
		tr := s.RequestSelection(4, views[0])
		if !tr.Advance {
			t.Fatal("setup: expected pending selection")
		}
		before := s.Snapshot()

		events := 0
		unsubscribe := s.Subscribe(func(Event) { events++ })

		tr = s.RequestSelection(n, views[0])
		unsubscribe()

		if tr.Changed || tr.Advance {
			t.Errorf("n=%d: Transition = %+v, want zero", n, tr)
		}
		if !reflect.DeepEqual(s.Snapshot(), before) {
			t.Errorf("n=%d: state changed: %+v -> %+v", n, before, s.Snapshot())
		}
		if events != 0 {
			t.Errorf("n=%d: %d events emitted, want 0", n, events)
		}
	}
}

func TestRequestSelection_ReplacesPending(t *testing.T) {
	s := New()
	views := pages(2, 2, 2)

	if tr := s.RequestSelection(5, views[0]); tr.Pending != 3 {
		t.Fatalf("Pending = %d, want 3", tr.Pending)
	}

	tr := s.RequestSelection(1, views[0])
	if tr.Advance || s.Pending() != 0 {
		t.Errorf("new request should replace pending budget, got %+v", tr)
	}
}

func TestOnPageArrived_IdleIsNoop(t *testing.T) {
	s := New()
	s.ToggleOne(99, true)
	before := s.Selected()

	tr := s.OnPageArrived(PageView{IDs: []int{1, 2, 3}, CurrentPage: 2, TotalPages: 5})
	if tr.Changed {
		t.Errorf("Transition = %+v, want zero", tr)
	}
	if got := s.Selected(); !reflect.DeepEqual(got, before) {
		t.Errorf("Selected() = %v, want %v", got, before)
	}

	st := s.Snapshot()
	if st.CurrentPage != 2 || st.TotalPages != 5 {
		t.Errorf("page tracking = %d/%d, want 2/5", st.CurrentPage, st.TotalPages)
	}
}

func TestToggleOne_Idempotent(t *testing.T) {
	once := New()
	once.ToggleOne(5, true)

	twice := New()
	twice.ToggleOne(5, true)
	twice.ToggleOne(5, true)

	if !reflect.DeepEqual(once.Snapshot(), twice.Snapshot()) {
		t.Errorf("toggling twice = %+v, once = %+v", twice.Snapshot(), once.Snapshot())
	}

	twice.ToggleOne(5, false)
	if twice.IsSelected(5) {
		t.Error("id 5 still selected after unchecking")
	}
}

func TestToggleOne_KeepsPending(t *testing.T) {
	s := New()
	views := pages(2, 2)
	s.RequestSelection(3, views[0])

	s.ToggleOne(100, true)
	if s.Pending() != 1 {
		t.Errorf("Pending = %d, want 1", s.Pending())
	}
}

func TestToggleAllOnPage(t *testing.T) {
	s := New()
	views := pages(3, 3)

	s.ToggleAllOnPage(views[0], true)
	s.ToggleAllOnPage(views[1], true)
	s.ToggleAllOnPage(views[1], false)

	if got := s.Selected(); !reflect.DeepEqual(got, []int{1, 2, 3}) {
		t.Errorf("Selected() = %v, want [1 2 3]", got)
	}
}

func TestAllChecked(t *testing.T) {
	s := New()
	view := PageView{IDs: []int{1, 2, 3}, CurrentPage: 1, TotalPages: 1}

	if s.AllChecked(view) {
		t.Error("AllChecked with 0 of 3 selected")
	}

	s.ToggleOne(1, true)
	s.ToggleOne(2, true)
	if s.AllChecked(view) {
		t.Error("AllChecked with 2 of 3 selected")
	}

	s.ToggleOne(3, true)
	if !s.AllChecked(view) {
		t.Error("AllChecked false with 3 of 3 selected")
	}

	s.ToggleOne(2, false)
	if s.AllChecked(view) {
		t.Error("AllChecked not recomputed after unchecking")
	}
}

func TestSubscribe(t *testing.T) {
	s := New()
	views := pages(2, 2)

	var kinds []EventKind
	unsubscribe := s.Subscribe(func(ev Event) {
		kinds = append(kinds, ev.Kind)
	})

	s.ToggleOne(1, true)
	s.ToggleAllOnPage(views[0], false)
	tr := s.RequestSelection(3, views[0])
	s.OnPageArrived(views[tr.NextPage-1])

	want := []EventKind{EventToggle, EventToggleAll, EventRequest, EventPageArrived}
	if !reflect.DeepEqual(kinds, want) {
		t.Errorf("events = %v, want %v", kinds, want)
	}

	unsubscribe()
	s.ToggleOne(2, true)
	if len(kinds) != len(want) {
		t.Errorf("event delivered after unsubscribe")
	}
}

func TestSubscribe_SnapshotIsolated(t *testing.T) {
	s := New()

	var got State
	s.Subscribe(func(ev Event) { got = ev.State })

	s.ToggleOne(1, true)
	s.ToggleOne(2, true)

	// The first snapshot must not see the second toggle.
	first := got
	s.ToggleOne(3, true)
	if first.Selection.Has(3) {
		t.Error("snapshot aliased the live selection set")
	}
}

func TestPhase(t *testing.T) {
	s := New()
	views := pages(2, 2, 2)

	if s.Phase() != PhaseIdle {
		t.Fatalf("initial Phase = %s, want idle", s.Phase())
	}

	tr := s.RequestSelection(5, views[0])
	if s.Phase() != PhaseFilling {
		t.Errorf("Phase = %s, want filling", s.Phase())
	}

	tr = s.OnPageArrived(views[tr.NextPage-1])
	if s.Phase() != PhaseFilling || tr.Pending != 1 {
		t.Errorf("Phase = %s pending %d, want filling 1", s.Phase(), tr.Pending)
	}

	s.OnPageArrived(views[tr.NextPage-1])
	if s.Phase() != PhaseIdle {
		t.Errorf("Phase = %s, want idle", s.Phase())
	}

	// Re-enterable.
	s.RequestSelection(3, views[0])
	if s.Phase() != PhaseFilling {
		t.Errorf("Phase after re-entry = %s, want filling", s.Phase())
	}
}
