package capper

import (
	"reflect"
	"testing"
)

type cat struct {
	key string
	val float64
}

func catKey(c cat, _ int) string    { return c.key }
func catValue(c cat, _ int) float64 { return c.val }

func keysOf(t *testing.T, c *Capper[cat], entries []Entry[cat]) []string {
	t.Helper()
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = c.Key(e, i)
	}
	return out
}

func TestTransformUnbounded(t *testing.T) {
	c := New(catKey, catValue)
	items := []cat{{"b", 5}, {"a", 10}, {"c", 3}}
	got := c.Transform(items)
	want := []string{"a", "b", "c"}
	if !reflect.DeepEqual(keysOf(t, c, got), want) {
		t.Fatalf("unexpected order: %v", keysOf(t, c, got))
	}
	for _, e := range got {
		if e.IsBucket() {
			t.Fatalf("unbounded cap must not produce a bucket")
		}
	}
	if items[0].key != "b" {
		t.Fatalf("input slice was mutated: %v", items)
	}
}

func TestTransformFrontCap(t *testing.T) {
	c := New(catKey, catValue, WithCap[cat](2))
	got := c.Transform([]cat{{"a", 10}, {"b", 5}, {"c", 3}})
	if len(got) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(got))
	}
	if want := []string{"a", "b", "Others"}; !reflect.DeepEqual(keysOf(t, c, got), want) {
		t.Fatalf("unexpected keys: %v", keysOf(t, c, got))
	}
	last := got[2]
	if !last.IsBucket() {
		t.Fatalf("expected bucket entry, got raw %v", last.Raw)
	}
	if last.Bucket.Value != 3 {
		t.Fatalf("expected bucket value 3, got %v", last.Bucket.Value)
	}
	if !reflect.DeepEqual(last.Bucket.Keys, []string{"c"}) {
		t.Fatalf("unexpected absorbed keys: %v", last.Bucket.Keys)
	}
}

func TestTransformBackCap(t *testing.T) {
	c := New(catKey, catValue, WithCap[cat](2), WithTakeFront[cat](false))
	got := c.Transform([]cat{{"a", 10}, {"b", 5}, {"c", 3}})
	if want := []string{"b", "c", "Others"}; !reflect.DeepEqual(keysOf(t, c, got), want) {
		t.Fatalf("unexpected keys: %v", keysOf(t, c, got))
	}
	last := got[2]
	if !last.IsBucket() || last.Bucket.Value != 10 {
		t.Fatalf("expected Others bucket worth 10, got %+v", last)
	}
	if !reflect.DeepEqual(last.Bucket.Keys, []string{"a"}) {
		t.Fatalf("unexpected absorbed keys: %v", last.Bucket.Keys)
	}
}

func TestTransformZeroSumRemainderDropped(t *testing.T) {
	c := New(catKey, catValue, WithCap[cat](0))
	got := c.Transform([]cat{{"a", 0}, {"b", 0}})
	if len(got) != 0 {
		t.Fatalf("expected empty output, got %v", got)
	}
}

func TestTransformCapZeroCollapsesAll(t *testing.T) {
	c := New(catKey, catValue, WithCap[cat](0))
	got := c.Transform([]cat{{"a", 10}, {"b", 5}})
	if len(got) != 1 || !got[0].IsBucket() {
		t.Fatalf("expected a single bucket, got %v", got)
	}
	if got[0].Bucket.Value != 15 {
		t.Fatalf("expected bucket value 15, got %v", got[0].Bucket.Value)
	}
	if !reflect.DeepEqual(got[0].Bucket.Keys, []string{"a", "b"}) {
		t.Fatalf("unexpected absorbed keys: %v", got[0].Bucket.Keys)
	}
}

func TestTransformNegativeCapClampsToZero(t *testing.T) {
	c := New(catKey, catValue, WithCap[cat](-3))
	got := c.Transform([]cat{{"a", 10}, {"b", 5}})
	if len(got) != 1 || !got[0].IsBucket() {
		t.Fatalf("expected everything collapsed, got %v", got)
	}
}

func TestTransformCapAtOrAboveLength(t *testing.T) {
	items := []cat{{"a", 10}, {"b", 5}}
	for _, n := range []int{2, 3, 100} {
		c := New(catKey, catValue, WithCap[cat](n))
		got := c.Transform(items)
		if len(got) != 2 {
			t.Fatalf("cap %d: expected 2 entries, got %d", n, len(got))
		}
		for _, e := range got {
			if e.IsBucket() {
				t.Fatalf("cap %d: no bucket expected", n)
			}
		}
	}
}

func TestValueConservation(t *testing.T) {
	items := []cat{{"a", 7}, {"b", 4}, {"c", 2.5}, {"d", 1.5}, {"e", 1}}
	var total float64
	for _, it := range items {
		total += it.val
	}
	c := New(catKey, catValue, WithCap[cat](2))
	got := c.Transform(items)
	var outTotal float64
	for i, e := range got {
		outTotal += c.Value(e, i)
	}
	if outTotal != total {
		t.Fatalf("value not conserved: in=%v out=%v", total, outTotal)
	}
}

func TestDisabledGrouper(t *testing.T) {
	c := New(catKey, catValue, WithCap[cat](2))
	c.SetGrouper(nil)
	got := c.Transform([]cat{{"a", 10}, {"b", 5}, {"c", 3}})
	if len(got) != 2 {
		t.Fatalf("expected exactly cap entries, got %d", len(got))
	}
	for _, e := range got {
		if e.IsBucket() {
			t.Fatalf("disabled grouper must never produce a bucket")
		}
	}
}

func TestCustomGrouper(t *testing.T) {
	c := New(catKey, catValue, WithCap[cat](1),
		WithGrouper[cat](func(kept []Entry[cat], collapsed []cat) []Entry[cat] {
			// Drops values on purpose; only counts the remainder.
			return append(kept, Entry[cat]{Bucket: &OthersBucket{
				Label: "rest",
				Value: float64(len(collapsed)),
			}})
		}))
	got := c.Transform([]cat{{"a", 10}, {"b", 5}, {"c", 3}})
	if len(got) != 2 || !got[1].IsBucket() {
		t.Fatalf("unexpected output: %v", got)
	}
	if got[1].Bucket.Label != "rest" || got[1].Bucket.Value != 2 {
		t.Fatalf("custom grouper not applied: %+v", got[1].Bucket)
	}
}

func TestStableRanking(t *testing.T) {
	c := New(catKey, catValue)
	got := c.Transform([]cat{{"x", 5}, {"y", 5}, {"z", 5}})
	if want := []string{"x", "y", "z"}; !reflect.DeepEqual(keysOf(t, c, got), want) {
		t.Fatalf("equal items must keep input order: %v", keysOf(t, c, got))
	}
}

func TestCustomOrdering(t *testing.T) {
	c := New(catKey, catValue,
		WithCap[cat](2),
		WithOrdering[cat](func(item cat) float64 { return item.val }))
	got := c.Transform([]cat{{"a", 10}, {"b", 5}, {"c", 3}})
	// Ascending by value: kept = c, b; collapsed = a.
	if want := []string{"c", "b", "Others"}; !reflect.DeepEqual(keysOf(t, c, got), want) {
		t.Fatalf("unexpected keys: %v", keysOf(t, c, got))
	}
}

func TestIdempotence(t *testing.T) {
	items := []cat{{"a", 10}, {"b", 5}, {"c", 3}, {"d", 1}}
	c := New(catKey, catValue, WithCap[cat](2), WithOthersLabel[cat]("Rest"))
	first := c.Transform(items)
	second := c.Transform(items)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("repeated transform differs:\nfirst:  %v\nsecond: %v", first, second)
	}
}

func TestCappedAccessors(t *testing.T) {
	c := New(catKey, catValue)
	raw := Entry[cat]{Raw: cat{"a", 10}}
	bucket := Entry[cat]{Bucket: &OthersBucket{Label: "Others", Value: 8, Keys: []string{"x", "y"}}}
	if got := c.Key(raw, 0); got != "a" {
		t.Fatalf("raw key: got %q", got)
	}
	if got := c.Value(raw, 0); got != 10 {
		t.Fatalf("raw value: got %v", got)
	}
	if got := c.Key(bucket, 1); got != "Others" {
		t.Fatalf("bucket key: got %q", got)
	}
	if got := c.Value(bucket, 1); got != 8 {
		t.Fatalf("bucket value: got %v", got)
	}
}

func TestSetterChaining(t *testing.T) {
	c := New(catKey, catValue).
		SetCap(4).
		SetTakeFront(false).
		SetOthersLabel("Rest")
	if c.Cap() != 4 || c.TakeFront() || c.OthersLabel() != "Rest" {
		t.Fatalf("chained setters not applied: cap=%d front=%v label=%q",
			c.Cap(), c.TakeFront(), c.OthersLabel())
	}
}
