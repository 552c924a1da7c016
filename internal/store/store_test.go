package store

import (
	"context"
	"path/filepath"
	"sort"
	"testing"

	"github.com/avollmer/capview/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "capview.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() {
		if err := st.Close(); err != nil {
			t.Errorf("failed to close store: %v", err)
		}
	})
	return st
}

func seedSales(t *testing.T, st *Store) {
	t.Helper()
	records := []model.Record{
		{Dimensions: map[string]string{"region": "east", "product": "widget"}, Measure: 10},
		{Dimensions: map[string]string{"region": "east", "product": "gadget"}, Measure: 5},
		{Dimensions: map[string]string{"region": "west", "product": "widget"}, Measure: 3},
		{Dimensions: map[string]string{"product": "widget"}, Measure: 2},
	}
	if _, err := st.ReplaceDataset(context.Background(), "sales", "amount", records); err != nil {
		t.Fatalf("failed to insert dataset: %v", err)
	}
}

func totalsByKey(groups []model.Group) map[string]model.Group {
	out := make(map[string]model.Group, len(groups))
	for _, g := range groups {
		out[g.Key] = g
	}
	return out
}

func TestGroupTotals(t *testing.T) {
	st := openTestStore(t)
	seedSales(t, st)

	groups, err := st.GroupTotals(context.Background(), "sales", "region")
	if err != nil {
		t.Fatalf("GroupTotals failed: %v", err)
	}
	if len(groups) != 3 {
		t.Fatalf("expected 3 groups, got %d: %v", len(groups), groups)
	}
	byKey := totalsByKey(groups)
	if g := byKey["east"]; g.Value != 15 || g.Count != 2 {
		t.Fatalf("east: got %+v", g)
	}
	if g := byKey["west"]; g.Value != 3 || g.Count != 1 {
		t.Fatalf("west: got %+v", g)
	}
	if g := byKey[""]; g.Value != 2 || g.Count != 1 {
		t.Fatalf("missing dimension should group under empty key, got %+v", g)
	}
}

func TestGroupTotalsForKeys(t *testing.T) {
	st := openTestStore(t)
	seedSales(t, st)

	groups, err := st.GroupTotalsForKeys(context.Background(), "sales", "region", []string{"west", ""})
	if err != nil {
		t.Fatalf("GroupTotalsForKeys failed: %v", err)
	}
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %v", groups)
	}
	byKey := totalsByKey(groups)
	if byKey["west"].Value != 3 || byKey[""].Value != 2 {
		t.Fatalf("unexpected totals: %v", groups)
	}

	none, err := st.GroupTotalsForKeys(context.Background(), "sales", "region", nil)
	if err != nil {
		t.Fatalf("empty key set failed: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("empty key set should match nothing, got %v", none)
	}
}

func TestReplaceDatasetReplaces(t *testing.T) {
	st := openTestStore(t)
	seedSales(t, st)

	replacement := []model.Record{
		{Dimensions: map[string]string{"region": "north"}, Measure: 7},
	}
	if _, err := st.ReplaceDataset(context.Background(), "sales", "amount", replacement); err != nil {
		t.Fatalf("failed to replace dataset: %v", err)
	}

	groups, err := st.GroupTotals(context.Background(), "sales", "region")
	if err != nil {
		t.Fatalf("GroupTotals failed: %v", err)
	}
	if len(groups) != 1 || groups[0].Key != "north" || groups[0].Value != 7 {
		t.Fatalf("old records survived replacement: %v", groups)
	}

	datasets, err := st.ListDatasets(context.Background())
	if err != nil {
		t.Fatalf("ListDatasets failed: %v", err)
	}
	if len(datasets) != 1 || datasets[0].Records != 1 {
		t.Fatalf("unexpected datasets: %+v", datasets)
	}
}

func TestListDimensions(t *testing.T) {
	st := openTestStore(t)
	seedSales(t, st)

	dims, err := st.ListDimensions(context.Background(), "sales")
	if err != nil {
		t.Fatalf("ListDimensions failed: %v", err)
	}
	want := []string{"product", "region"}
	if len(dims) != len(want) {
		t.Fatalf("expected %v, got %v", want, dims)
	}
	sorted := append([]string(nil), dims...)
	sort.Strings(sorted)
	for i, d := range sorted {
		if d != want[i] {
			t.Fatalf("expected %v, got %v", want, dims)
		}
	}
}
