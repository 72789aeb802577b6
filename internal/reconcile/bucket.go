package reconcile

import "time"

// BucketState tracks a bucket through
// Empty -> Editing -> (Created | UpdatePending) -> Updated.
// Synced marks a bucket seeded from the server and not edited since.
type BucketState int

const (
	StateEmpty BucketState = iota
	StateSynced
	StateEditing
	StateCreated
	StateUpdatePending
	StateUpdated
)

func (s BucketState) String() string {
	switch s {
	case StateSynced:
		return "synced"
	case StateEditing:
		return "editing"
	case StateCreated:
		return "created"
	case StateUpdatePending:
		return "update-pending"
	case StateUpdated:
		return "updated"
	default:
		return "empty"
	}
}

// Bucket is one slot's measurement for the active date. A nil ServerID means
// the record has never been created on the server.
type Bucket struct {
	Key      Slot
	Value    *float64
	Time     time.Time
	ServerID *int64
	State    BucketState
}

func (b Bucket) clone() Bucket {
	if b.Value != nil {
		v := *b.Value
		b.Value = &v
	}
	if b.ServerID != nil {
		id := *b.ServerID
		b.ServerID = &id
	}
	return b
}

// Summary is the per-slot view of a day.
type Summary struct {
	Date    string
	Values  map[Slot]*float64
	Count   int
	Average float64
	Min     float64
	Max     float64
}
