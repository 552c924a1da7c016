// Package model defines shared data structures.
package model

import "time"

// Group is one category produced by grouping records on a dimension:
// a key, its summed measure, and how many records contributed.
type Group struct {
	Key   string
	Value float64
	Count int
}

// Label returns the display label for the group key. Empty dimension
// values are stored as "" and shown as "(blank)".
func (g Group) Label() string {
	if g.Key == "" {
		return "(blank)"
	}
	return g.Key
}

// Record is one ingested data row: text dimensions plus one numeric
// measure.
type Record struct {
	Dimensions map[string]string
	Measure    float64
}

// Dataset describes a loaded dataset.
type Dataset struct {
	ID           int64
	Name         string
	MeasureLabel string
	CreatedAt    time.Time
	Records      int
}

// ViewConfig defines how a chart view is built and capped.
type ViewConfig struct {
	Dataset     string
	Dimension   string
	Cap         int
	TakeFront   bool
	OthersLabel string
	Title       string
}
