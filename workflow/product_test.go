package workflow

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dshills/stategraph/graph"
	"github.com/dshills/stategraph/memory"
	"github.com/dshills/stategraph/search"
)

func newProductService(t *testing.T, index search.Searcher) (*ProductService, *memory.MemStore) {
	t.Helper()
	store := memory.NewMemStore()
	compiled, err := ProductGraph(store, index)
	if err != nil {
		t.Fatalf("ProductGraph: %v", err)
	}
	e, err := graph.New(compiled)
	if err != nil {
		t.Fatal(err)
	}
	return NewProductService(e, store), store
}

func TestProductService_HITL(t *testing.T) {
	index, err := SampleProducts()
	if err != nil {
		t.Fatal(err)
	}
	svc, _ := newProductService(t, index)
	ctx := context.Background()
	const q = "wireless headphones"

	first, err := svc.Search(ctx, q)
	if err != nil {
		t.Fatal(err)
	}
	if first.Source != SourceIndex || !strings.HasPrefix(first.Results, "Found products:\n• ") {
		t.Fatalf("first search = %+v", first)
	}
	if !strings.Contains(first.Results, "Wireless Noise Cancelling Headphones") {
		t.Errorf("results = %q", first.Results)
	}

	status, err := svc.Approve(ctx, q, "Found: X")
	if err != nil || status != "✓ Approved and saved for: wireless headphones" {
		t.Fatalf("Approve = %q, %v", status, err)
	}
	hit, _ := svc.Search(ctx, q)
	if hit.Results != "Found: X" || hit.Source != SourceMemory {
		t.Errorf("after approve = %+v", hit)
	}

	status, err = svc.Edit(ctx, q, "Found: Y")
	if err != nil || status != "✓ Edited and saved for: wireless headphones" {
		t.Fatalf("Edit = %q, %v", status, err)
	}
	hit, _ = svc.Search(ctx, q)
	if hit.Results != "Found: Y" {
		t.Errorf("after edit = %+v", hit)
	}

	// Approving formatted results does not double the prefix on the next hit.
	_, _ = svc.Approve(ctx, "laptop", first.Results)
	again, _ := svc.Search(ctx, "laptop")
	if strings.Count(again.Results, "Found products:") != 1 {
		t.Errorf("results = %q", again.Results)
	}

	listing, err := svc.Memory(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(listing, "Query: wireless headphones\nFound: Y\n") {
		t.Errorf("memory = %q", listing)
	}
}

func TestProductService_EdgeCases(t *testing.T) {
	svc, store := newProductService(t, search.NewIndex(search.Document{ID: "1", Title: "Desk Lamp", Text: "LED lamp"}))
	ctx := context.Background()

	blank, err := svc.Search(ctx, "   ")
	if err != nil || blank.Results != "Please enter a query" {
		t.Errorf("blank search = %+v, %v", blank, err)
	}

	none, err := svc.Search(ctx, "refrigerator")
	if err != nil || none.Results != "No products found" {
		t.Errorf("no hits = %+v, %v", none, err)
	}

	if _, err := svc.Approve(ctx, " ", "r"); !errors.Is(err, memory.ErrEmptyQuery) {
		t.Errorf("Approve blank err = %v", err)
	}
	if _, err := svc.Edit(ctx, "", "r"); !errors.Is(err, memory.ErrEmptyQuery) {
		t.Errorf("Edit blank err = %v", err)
	}
	if store.Len() != 0 {
		t.Errorf("store has %d entries", store.Len())
	}
	if listing, _ := svc.Memory(ctx); listing != "Memory is empty" {
		t.Errorf("memory = %q", listing)
	}
}

type failingSearcher struct{}

func (failingSearcher) Search(context.Context, string, int) ([]search.Hit, error) {
	return nil, errors.New("index offline")
}

func TestProductGraph_SearchError(t *testing.T) {
	svc, _ := newProductService(t, failingSearcher{})
	got, err := svc.Search(context.Background(), "headphones")
	if err != nil {
		t.Fatal(err)
	}
	if got.Source != SourceError || got.Results != "Error searching products: index offline" {
		t.Errorf("got = %+v", got)
	}
}
