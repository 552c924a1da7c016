// Package capper bounds a ranked category list: items are stably sorted
// by a configurable ordering, the top entries up to a cap are kept, and
// the remainder is folded into a single synthetic "Others" entry that
// remembers which category keys it absorbed.
package capper

import (
	"math"
	"sort"
)

// Unbounded disables capping: Transform returns every item, ranked.
const Unbounded = math.MaxInt

const defaultOthersLabel = "Others"

// KeyFunc extracts the category key from a raw item.
type KeyFunc[T any] func(item T, i int) string

// ValueFunc extracts the numeric value from a raw item.
type ValueFunc[T any] func(item T, i int) float64

// OrderFunc induces the ranking order. Items sort ascending on the
// returned value; the same order selects the kept subset and the
// display sequence.
type OrderFunc[T any] func(item T) float64

// GrouperFunc folds the collapsed remainder into the kept entries and
// returns the final presentation sequence. A custom grouper may break
// value conservation; its contract is the caller's.
type GrouperFunc[T any] func(kept []Entry[T], collapsed []T) []Entry[T]

// OthersBucket is the synthetic aggregate entry standing in for the
// categories excluded by capping. Keys holds the absorbed category keys
// in ranked order.
type OthersBucket struct {
	Label string
	Value float64
	Keys  []string
}

// Entry is one presentation item: either a raw item or an Others bucket.
// A non-nil Bucket marks the synthetic entry; Raw is the zero value then.
type Entry[T any] struct {
	Raw    T
	Bucket *OthersBucket
}

// IsBucket reports whether the entry is a synthetic Others bucket.
func (e Entry[T]) IsBucket() bool { return e.Bucket != nil }

// Capper ranks raw items, keeps the top entries up to the configured
// cap, and folds the rest into an Others bucket. Configuration changes
// only through setters; Transform never mutates it.
type Capper[T any] struct {
	keyFn     KeyFunc[T]
	valueFn   ValueFunc[T]
	orderFn   OrderFunc[T]
	capacity  int
	takeFront bool
	label     string
	grouper   GrouperFunc[T]
}

// Option configures a Capper at construction.
type Option[T any] func(*Capper[T])

// WithCap sets the category bound. Use Unbounded to disable capping.
func WithCap[T any](n int) Option[T] {
	return func(c *Capper[T]) { c.capacity = n }
}

// WithTakeFront sets the capping direction: true keeps the ranked
// prefix, false keeps the ranked suffix.
func WithTakeFront[T any](front bool) Option[T] {
	return func(c *Capper[T]) { c.takeFront = front }
}

// WithOthersLabel sets the label of the synthetic bucket entry.
func WithOthersLabel[T any](label string) Option[T] {
	return func(c *Capper[T]) { c.label = label }
}

// WithOrdering replaces the ranking order.
func WithOrdering[T any](fn OrderFunc[T]) Option[T] {
	return func(c *Capper[T]) { c.orderFn = fn }
}

// WithGrouper replaces the bucket builder. A nil grouper disables the
// bucket entirely: collapsed items are dropped, never shown.
func WithGrouper[T any](fn GrouperFunc[T]) Option[T] {
	return func(c *Capper[T]) { c.grouper = fn }
}

// New builds a Capper around the given key and value accessors.
// Defaults: unbounded cap, front direction, label "Others", the default
// summing grouper, and ranking by descending value (the value accessor
// is consulted without a positional index).
func New[T any](key KeyFunc[T], value ValueFunc[T], opts ...Option[T]) *Capper[T] {
	c := &Capper[T]{
		keyFn:     key,
		valueFn:   value,
		capacity:  Unbounded,
		takeFront: true,
		label:     defaultOthersLabel,
	}
	c.orderFn = func(item T) float64 { return -value(item, 0) }
	c.grouper = c.defaultGrouper
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Cap returns the current category bound.
func (c *Capper[T]) Cap() int { return c.capacity }

// SetCap sets the category bound and returns the Capper for chaining.
func (c *Capper[T]) SetCap(n int) *Capper[T] {
	c.capacity = n
	return c
}

// TakeFront returns the capping direction.
func (c *Capper[T]) TakeFront() bool { return c.takeFront }

// SetTakeFront sets the capping direction and returns the Capper.
func (c *Capper[T]) SetTakeFront(front bool) *Capper[T] {
	c.takeFront = front
	return c
}

// OthersLabel returns the bucket label.
func (c *Capper[T]) OthersLabel() string { return c.label }

// SetOthersLabel sets the bucket label and returns the Capper.
func (c *Capper[T]) SetOthersLabel(label string) *Capper[T] {
	c.label = label
	return c
}

// Grouper returns the current bucket builder; nil means disabled.
func (c *Capper[T]) Grouper() GrouperFunc[T] { return c.grouper }

// SetGrouper replaces the bucket builder and returns the Capper.
// Passing nil disables bucket creation regardless of the remainder sum.
func (c *Capper[T]) SetGrouper(fn GrouperFunc[T]) *Capper[T] {
	c.grouper = fn
	return c
}

// Ordering returns the ranking order function.
func (c *Capper[T]) Ordering() OrderFunc[T] { return c.orderFn }

// SetOrdering replaces the ranking order and returns the Capper.
func (c *Capper[T]) SetOrdering(fn OrderFunc[T]) *Capper[T] {
	c.orderFn = fn
	return c
}

// Key reads the category key uniformly from raw and bucket entries.
func (c *Capper[T]) Key(e Entry[T], i int) string {
	if e.Bucket != nil {
		return e.Bucket.Label
	}
	return c.keyFn(e.Raw, i)
}

// Value reads the numeric value uniformly from raw and bucket entries.
func (c *Capper[T]) Value(e Entry[T], i int) float64 {
	if e.Bucket != nil {
		return e.Bucket.Value
	}
	return c.valueFn(e.Raw, i)
}

// Transform ranks the items, applies the cap, and folds the collapsed
// remainder through the grouper. The input slice is left untouched and
// the bucket is recomputed on every call, so repeated invocations with
// unchanged input and configuration yield equal sequences.
func (c *Capper[T]) Transform(items []T) []Entry[T] {
	ordered := c.rank(items)
	keptRaw, collapsed := split(ordered, c.capacity, c.takeFront)
	kept := make([]Entry[T], len(keptRaw))
	for i, item := range keptRaw {
		kept[i] = Entry[T]{Raw: item}
	}
	if len(collapsed) == 0 || c.grouper == nil {
		return kept
	}
	return c.grouper(kept, collapsed)
}

// rank returns a stably sorted copy: items comparing equal under the
// ordering keep their relative input order.
func (c *Capper[T]) rank(items []T) []T {
	out := append([]T(nil), items...)
	sort.SliceStable(out, func(i, j int) bool {
		return c.orderFn(out[i]) < c.orderFn(out[j])
	})
	return out
}

// split partitions ranked items into kept and collapsed subsets.
// capacity at or above the length keeps everything; at or below zero it
// collapses everything (negative values clamp to zero).
func split[T any](ordered []T, capacity int, takeFront bool) (kept, collapsed []T) {
	if capacity == Unbounded || capacity >= len(ordered) {
		return ordered, nil
	}
	if capacity < 0 {
		capacity = 0
	}
	if takeFront {
		return ordered[:capacity], ordered[capacity:]
	}
	start := len(ordered) - capacity
	return ordered[start:], ordered[:start]
}

// defaultGrouper sums the collapsed values and appends one bucket entry
// carrying the absorbed keys. A remainder summing to zero is dropped
// rather than shown as an empty bucket.
func (c *Capper[T]) defaultGrouper(kept []Entry[T], collapsed []T) []Entry[T] {
	var sum float64
	for i, item := range collapsed {
		sum += c.valueFn(item, i)
	}
	if sum <= 0 {
		return kept
	}
	keys := make([]string, len(collapsed))
	for i, item := range collapsed {
		keys[i] = c.keyFn(item, i)
	}
	return append(kept, Entry[T]{Bucket: &OthersBucket{
		Label: c.label,
		Value: sum,
		Keys:  keys,
	}})
}
