package jobs

import (
	"reflect"
	"sort"
	"strings"
)

// Collection is the ordered job list as delivered by the server.
type Collection []*Job

// Find returns the job with id.
func (c Collection) Find(id string) (*Job, bool) {
	for _, job := range c {
		if job != nil && job.ID == id {
			return job, true
		}
	}
	return nil, false
}

// Same reports whether a and b are the same collection reference.
func Same(a, b Collection) bool {
	if len(a) != len(b) {
		return false
	}
	if len(a) == 0 {
		return (a == nil) == (b == nil)
	}
	return &a[0] == &b[0]
}

// Equal reports structural equality of two collections, field by field and
// in order.
func Equal(a, b Collection) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !JobEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}

// JobEqual reports structural equality of two jobs.
func JobEqual(a, b *Job) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return reflect.DeepEqual(*a, *b)
}

// Reconcile returns current unchanged when incoming is structurally equal to
// it, otherwise incoming verbatim.
func Reconcile(current, incoming Collection) Collection {
	if Equal(current, incoming) {
		return current
	}
	return incoming
}

// ApplyPatch returns a new collection where the job matching id has patch
// merged over a copy of it. Other jobs keep their pointers. An unknown id or
// empty patch returns current unchanged.
func ApplyPatch(current Collection, id string, patch Patch) Collection {
	if patch.Empty() {
		return current
	}
	idx := -1
	for i, job := range current {
		if job != nil && job.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return current
	}
	next := make(Collection, len(current))
	copy(next, current)
	next[idx] = patch.apply(current[idx])
	return next
}

// SortKey names a sortable field.
type SortKey string

const (
	SortByCreatedAt SortKey = "created_at"
	SortByRating    SortKey = "rating"
	SortByDuration  SortKey = "duration"
)

// Order is the sort direction.
type Order string

const (
	Asc  Order = "asc"
	Desc Order = "desc"
)

// ParseSortKey accepts created_at/createdAt, rating, or duration.
func ParseSortKey(value string) (SortKey, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "created_at", "createdat", "created":
		return SortByCreatedAt, true
	case "rating":
		return SortByRating, true
	case "duration":
		return SortByDuration, true
	default:
		return "", false
	}
}

// ParseOrder accepts asc or desc; empty means desc.
func ParseOrder(value string) (Order, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "desc":
		return Desc, true
	case "asc":
		return Asc, true
	default:
		return "", false
	}
}

// Sort returns a stably sorted copy. Missing values sort as zero. An empty
// key defaults to created_at and an empty order to desc.
func Sort(c Collection, key SortKey, order Order) Collection {
	if key == "" {
		key = SortByCreatedAt
	}
	if order == "" {
		order = Desc
	}
	out := make(Collection, len(c))
	copy(out, c)
	less := func(a, b *Job) int {
		switch key {
		case SortByRating:
			return compareInt(int64(ratingOf(a)), int64(ratingOf(b)))
		case SortByDuration:
			return compareInt(int64(durationOf(a)), int64(durationOf(b)))
		default:
			return a.CreatedTime().Compare(b.CreatedTime())
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		cmp := less(out[i], out[j])
		if order == Desc {
			return cmp > 0
		}
		return cmp < 0
	})
	return out
}

func ratingOf(j *Job) int {
	if j == nil {
		return 0
	}
	return j.Rating
}

func durationOf(j *Job) int {
	if j == nil {
		return 0
	}
	return j.Duration
}

func compareInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
