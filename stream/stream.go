// Package stream holds consumer-side helpers for Engine.Stream. The engine
// yields full state snapshots; incremental display is computed here.
package stream

import (
	"iter"
	"strings"

	"github.com/dshills/stategraph/graph"
)

// Text tracks one text field across snapshots. The zero value is ready to
// use.
type Text struct {
	last string
}

// Next returns the part of current not yet shown. When current does not
// extend what was shown before, all of current is returned and restarted
// is true; callers typically start a new line first.
func (t *Text) Next(current string) (delta string, restarted bool) {
	if current == t.last {
		return "", false
	}
	prev := t.last
	t.last = current
	if strings.HasPrefix(current, prev) {
		return current[len(prev):], false
	}
	return current, prev != ""
}

// Last returns the most recent full text.
func (t *Text) Last() string {
	return t.last
}

// Chunk is one piece of display output.
type Chunk struct {
	Text string

	// Restarted reports that Text replaces rather than extends the
	// previous output.
	Restarted bool

	// Node is the node whose step produced the chunk.
	Node string
}

// Deltas adapts a stream of steps into the text increments of one field.
// Steps that leave the field unchanged produce nothing. Errors from steps
// pass through and end the sequence.
//
//	for chunk, err := range stream.Deltas(engine.Stream(ctx, "", initial), lastAssistantText) {
//	    if err != nil {
//	        return err
//	    }
//	    if chunk.Restarted {
//	        fmt.Println()
//	    }
//	    fmt.Print(chunk.Text)
//	}
func Deltas[S any](steps iter.Seq2[graph.Step[S], error], field func(S) string) iter.Seq2[Chunk, error] {
	return func(yield func(Chunk, error) bool) {
		var t Text
		for step, err := range steps {
			if err != nil {
				yield(Chunk{}, err)
				return
			}
			delta, restarted := t.Next(field(step.State))
			if delta == "" {
				continue
			}
			if !yield(Chunk{Text: delta, Restarted: restarted, Node: step.Node}, nil) {
				return
			}
		}
	}
}
