// Package reducer implements the pure state transitions behind every store.
package reducer

// Record is anything addressable by an integer id.
type Record interface {
	RecordID() int64
}

// Kind names a state transition.
type Kind string

const (
	KindAdd    Kind = "ADD"
	KindUpdate Kind = "UPDATE"
	KindDelete Kind = "DELETE"
)

// Action is one requested transition. Record is used by ADD and UPDATE, ID by DELETE.
type Action[T Record] struct {
	Kind   Kind
	Record T
	ID     int64
}

// Add returns an ADD action for r.
func Add[T Record](r T) Action[T] { return Action[T]{Kind: KindAdd, Record: r} }

// Update returns an UPDATE action for r.
func Update[T Record](r T) Action[T] { return Action[T]{Kind: KindUpdate, Record: r} }

// Delete returns a DELETE action for id.
func Delete[T Record](id int64) Action[T] { return Action[T]{Kind: KindDelete, ID: id} }

// Reduce applies a to records and returns the next state together with a flag
// reporting whether anything changed. The result is always a new slice; the
// input is never modified. UPDATE and DELETE on a missing id leave the state
// unchanged. Unknown kinds are ignored.
func Reduce[T Record](records []T, a Action[T]) ([]T, bool) {
	switch a.Kind {
	case KindAdd:
		next := make([]T, 0, len(records)+1)
		next = append(next, a.Record)
		return append(next, records...), true

	case KindUpdate:
		next := make([]T, len(records))
		changed := false
		for i, r := range records {
			if !changed && r.RecordID() == a.Record.RecordID() {
				next[i] = a.Record
				changed = true
				continue
			}
			next[i] = r
		}
		return next, changed

	case KindDelete:
		next := make([]T, 0, len(records))
		for _, r := range records {
			if r.RecordID() == a.ID {
				continue
			}
			next = append(next, r)
		}
		return next, len(next) != len(records)
	}

	return append(make([]T, 0, len(records)), records...), false
}
