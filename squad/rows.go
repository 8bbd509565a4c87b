package squad

import "sync"

// RowState is one row's work-stealing status (spec.md §3 "Row-state
// table").
type RowState uint8

const (
	Untouched RowState = iota
	Processing
	Done
)

// RowTable tracks per-row work-stealing state across nby rows, guarded by
// a single mutex as spec.md §4.E requires. Workers try their assigned
// band first; once exhausted they scan the whole table for an Untouched
// row and claim it.
type RowTable struct {
	mu    sync.Mutex
	state []RowState
}

// NewRowTable creates a table of nby rows, all Untouched.
func NewRowTable(nby int) *RowTable {
	return &RowTable{state: make([]RowState, nby)}
}

// Reset marks every row Untouched again, for reuse across frames.
func (t *RowTable) Reset() {
	t.mu.Lock()
	for i := range t.state {
		t.state[i] = Untouched
	}
	t.mu.Unlock()
}

// TryClaim claims row i if it is Untouched, transitioning it to
// Processing and returning true; otherwise returns false without
// modifying state.
func (t *RowTable) TryClaim(i int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state[i] != Untouched {
		return false
	}
	t.state[i] = Processing
	return true
}

// MarkDone transitions row i to Done.
func (t *RowTable) MarkDone(i int) {
	t.mu.Lock()
	t.state[i] = Done
	t.mu.Unlock()
}

// StealAny scans the whole table for an Untouched row, claims the first
// one found, and returns its index and true; returns (0, false) once none
// remain.
func (t *RowTable) StealAny() (int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, st := range t.state {
		if st == Untouched {
			t.state[i] = Processing
			return i, true
		}
	}
	return 0, false
}

// IsDone reports whether row i has finished, for the "only Done rows are
// usable as upper neighbours" rule in spec.md §4.D step 2.
func (t *RowTable) IsDone(i int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state[i] == Done
}

// RunRowJob processes rows [start, start+size) in order, then steals
// Untouched rows from anywhere in the table until none remain. process
// is called with each claimed row index and must mark it Done itself
// (via t.MarkDone) once finished, since some callers need to interleave
// further bookkeeping between claiming and completion.
func RunRowJob(t *RowTable, start, size int, process func(row int)) {
	for r := start; r < start+size; r++ {
		if t.TryClaim(r) {
			process(r)
		}
	}
	for {
		row, ok := t.StealAny()
		if !ok {
			return
		}
		process(row)
	}
}
