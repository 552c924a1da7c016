// Package chart builds and renders capped category charts.
package chart

import (
	"context"

	"github.com/avollmer/capview/internal/capper"
	"github.com/avollmer/capview/internal/model"
)

// Source supplies the full current set of groups for a refresh. No
// ordering is assumed; ranking is the capper's job.
type Source interface {
	Groups(ctx context.Context) ([]model.Group, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context) ([]model.Group, error)

// Groups implements Source.
func (f SourceFunc) Groups(ctx context.Context) ([]model.Group, error) { return f(ctx) }

// Entry is one presentation row of a chart.
type Entry = capper.Entry[model.Group]

// Chart owns a group source, the capping configuration, and the
// selection handler chain.
type Chart struct {
	source   Source
	capper   *capper.Capper[model.Group]
	onSelect capper.SelectionHandler[model.Group]
}

func groupKey(g model.Group, _ int) string    { return g.Key }
func groupValue(g model.Group, _ int) float64 { return g.Value }

// New builds a chart over a group source. Options configure the capper.
func New(source Source, opts ...capper.Option[model.Group]) *Chart {
	return &Chart{
		source: source,
		capper: capper.New(groupKey, groupValue, opts...),
	}
}

// Capper exposes the capping configuration for live adjustment.
func (c *Chart) Capper() *capper.Capper[model.Group] { return c.capper }

// Data refreshes the chart: pulls all groups from the source and
// returns the ranked, capped presentation sequence. Called once per
// refresh; each call produces a fresh sequence.
func (c *Chart) Data(ctx context.Context) ([]Entry, error) {
	groups, err := c.source.Groups(ctx)
	if err != nil {
		return nil, err
	}
	return c.capper.Transform(groups), nil
}

// OnSelect installs a selection handler. The new handler runs before
// any previously installed behavior and never replaces it.
func (c *Chart) OnSelect(h capper.SelectionHandler[model.Group]) {
	prev := c.onSelect
	if prev == nil {
		c.onSelect = h
		return
	}
	c.onSelect = func(e Entry) {
		h(e)
		prev(e)
	}
}

// EnableDrillIn wires the Others drill-in: selecting a bucket entry
// sends its absorbed keys to sink before the rest of the chain runs.
func (c *Chart) EnableDrillIn(sink capper.FilterSink) {
	c.onSelect = capper.WrapSelection(c.onSelect, sink)
}

// Select runs the selection handler chain for a rendered entry.
func (c *Chart) Select(e Entry) {
	if c.onSelect != nil {
		c.onSelect(e)
	}
}

// Label returns the display label for an entry: the bucket label with
// an absorbed-key count, or the group's own label.
func (c *Chart) Label(e Entry, i int) string {
	if e.IsBucket() {
		return bucketLabel(e.Bucket)
	}
	return e.Raw.Label()
}

// Value reads the entry value through the capped accessor.
func (c *Chart) Value(e Entry, i int) float64 {
	return c.capper.Value(e, i)
}
