package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/dshills/stategraph/graph"
	"github.com/dshills/stategraph/memory"
	"github.com/dshills/stategraph/search"
)

// ProductState is the product search record.
type ProductState struct {
	Query   string `json:"query"`
	Results string `json:"results"`

	// Source is where Results came from: memory, index, or error.
	Source string `json:"source"`
}

func (s ProductState) fields() fieldSet {
	return fieldSet{"query": s.Query != "", "results": s.Results != "", "source": s.Source != ""}
}

// Fields implements graph.FieldReporter.
func (s ProductState) Fields() []string { return s.fields().list() }

// Has implements graph.FieldLookup.
func (s ProductState) Has(field string) bool { return s.fields()[field] }

// MergeProduct is the product search reducer.
func MergeProduct(prev, delta ProductState) ProductState {
	return ProductState{
		Query:   pick(prev.Query, delta.Query),
		Results: pick(prev.Results, delta.Results),
		Source:  pick(prev.Source, delta.Source),
	}
}

// Product result sources.
const (
	SourceMemory = "memory"
	SourceIndex  = "index"
	SourceError  = "error"
)

// SourceBranch routes on where the search results came from.
var SourceBranch = graph.NewBranch("source", func(s ProductState) string { return s.Source },
	SourceMemory, SourceIndex, SourceError)

// ProductTopK is the number of index hits listed per search.
const ProductTopK = 3

// ProductGraph builds the memory-guarded product search:
//
//	search -> {memory: End | index: format -> End | error: End}
//
// Remembered results are returned verbatim; fresh index results are
// formatted for review.
func ProductGraph(mem memory.Reader, index search.Searcher, opts ...memory.GuardOption) (*graph.Compiled[ProductState], error) {
	g := graph.NewGraph(MergeProduct)

	searchNode := memory.Guard(mem,
		func(s ProductState) string { return s.Query },
		func(s ProductState, result string) ProductState {
			return ProductState{Results: result, Source: SourceMemory}
		},
		searchIndex(index),
		opts...,
	)
	if err := g.AddNode("search", searchNode, graph.Reads("query"), graph.Writes("results", "source")); err != nil {
		return nil, err
	}
	if err := g.AddNode("format", graph.NodeFunc[ProductState](formatProducts),
		graph.Reads("source"), graph.Writes("results")); err != nil {
		return nil, err
	}

	if err := g.SetEntry("search"); err != nil {
		return nil, err
	}
	if err := g.AddConditionalEdge("search", SourceBranch, map[string]string{
		SourceMemory: graph.End,
		SourceIndex:  "format",
		SourceError:  graph.End,
	}); err != nil {
		return nil, err
	}
	if err := g.AddEdge("format", graph.End); err != nil {
		return nil, err
	}
	return g.Compile()
}

func searchIndex(index search.Searcher) graph.NodeFunc[ProductState] {
	return func(ctx context.Context, s ProductState) graph.NodeResult[ProductState] {
		hits, err := index.Search(ctx, s.Query, ProductTopK)
		if err != nil {
			return graph.Partial(ProductState{Results: "Error searching products: " + err.Error(), Source: SourceError})
		}
		return graph.Partial(ProductState{Results: search.Titles(hits), Source: SourceIndex})
	}
}

func formatProducts(ctx context.Context, s ProductState) graph.NodeResult[ProductState] {
	if s.Results == "" {
		return graph.Partial(ProductState{Results: "No products found"})
	}
	return graph.Partial(ProductState{Results: "Found products:\n" + s.Results})
}

// ProductService is the HITL product search: search, then approve or edit
// the results so later searches for the same query return them.
type ProductService struct {
	engine *graph.Engine[ProductState]
	store  memory.Store
}

// NewProductService wires a compiled product graph to store. The graph's
// memory guard must read from the same store.
func NewProductService(engine *graph.Engine[ProductState], store memory.Store) *ProductService {
	return &ProductService{engine: engine, store: store}
}

// Search runs the product graph for query.
func (p *ProductService) Search(ctx context.Context, query string) (ProductState, error) {
	if strings.TrimSpace(query) == "" {
		return ProductState{Results: "Please enter a query"}, nil
	}
	return p.engine.Run(ctx, "", ProductState{Query: query})
}

// Approve remembers results for query and returns a status line.
func (p *ProductService) Approve(ctx context.Context, query, results string) (string, error) {
	if err := p.store.Approve(ctx, query, results); err != nil {
		return "", fmt.Errorf("approve: %w", err)
	}
	return "✓ Approved and saved for: " + query, nil
}

// Edit remembers human-edited results for query and returns a status line.
func (p *ProductService) Edit(ctx context.Context, query, results string) (string, error) {
	if err := p.store.Edit(ctx, query, results); err != nil {
		return "", fmt.Errorf("edit: %w", err)
	}
	return "✓ Edited and saved for: " + query, nil
}

// Memory renders the remembered entries.
func (p *ProductService) Memory(ctx context.Context) (string, error) {
	entries, err := p.store.Entries(ctx)
	if err != nil {
		return "", err
	}
	return memory.Format(entries), nil
}

// Entries lists the remembered entries.
func (p *ProductService) Entries(ctx context.Context) ([]memory.Entry, error) {
	return p.store.Entries(ctx)
}
