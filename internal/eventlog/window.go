package eventlog

import (
	"sort"
	"time"
)

// Keyed is implemented by every log record.
type Keyed interface {
	LogKey() Key
}

// After returns the records with key > since. items must be ascending.
func After[T Keyed](items []T, since Key) []T {
	i := sort.Search(len(items), func(i int) bool { return items[i].LogKey().After(since) })
	if i >= len(items) {
		return nil
	}
	out := make([]T, len(items)-i)
	copy(out, items[i:])
	return out
}

// Tail returns at most the last n records.
func Tail[T Keyed](items []T, n int) []T {
	if n <= 0 {
		return nil
	}
	if len(items) > n {
		items = items[len(items)-n:]
	}
	out := make([]T, len(items))
	copy(out, items)
	return out
}

// NewerThan returns the records stamped at or after cutoff.
func NewerThan[T Keyed](items []T, cutoff time.Time) []T {
	ms := cutoff.UnixMilli()
	i := sort.Search(len(items), func(i int) bool { return items[i].LogKey().At >= ms })
	if i >= len(items) {
		return nil
	}
	out := make([]T, len(items)-i)
	copy(out, items[i:])
	return out
}

// Truncated reports whether records newer than since may have been pruned.
// total is the number of records ever appended.
func Truncated[T Keyed](retained []T, total uint64, since Key) bool {
	if since.IsZero() || uint64(len(retained)) >= total {
		return false
	}
	if len(retained) == 0 {
		return true
	}
	return retained[0].LogKey().After(since)
}

// Window appends and prunes a bounded trailing slice.
func Window[T Keyed](items []T, add []T, capacity int) []T {
	items = append(items, add...)
	if capacity > 0 && len(items) > capacity {
		trimmed := make([]T, capacity)
		copy(trimmed, items[len(items)-capacity:])
		items = trimmed
	}
	return items
}
