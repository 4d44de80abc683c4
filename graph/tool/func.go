package tool

import (
	"context"
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/dshills/stategraph/graph/model"
)

// Param describes one argument of a Func tool.
type Param struct {
	Name        string
	Type        string // JSON Schema type; defaults to "string"
	Description string
	Required    bool
}

// Func is a described tool backed by a function.
//
//	prices := tool.NewFunc("search_house_prices", "Look up house prices",
//	    []tool.Param{{Name: "location", Required: true}},
//	    func(ctx context.Context, args tool.Arguments) (string, error) {
//	        return lookup(args["location"])
//	    })
type Func struct {
	spec model.ToolSpec
	fn   func(ctx context.Context, args Arguments) (string, error)
}

// NewFunc creates a Func tool whose schema is built from params.
func NewFunc(name, description string, params []Param, fn func(ctx context.Context, args Arguments) (string, error)) *Func {
	return &Func{
		spec: model.ToolSpec{Name: name, Description: description, Schema: Schema(params)},
		fn:   fn,
	}
}

// Name implements Tool.
func (f *Func) Name() string { return f.spec.Name }

// Describe implements Describer.
func (f *Func) Describe() model.ToolSpec { return f.spec }

// Call implements Tool. Missing required arguments fail before fn runs.
func (f *Func) Call(ctx context.Context, args Arguments) (string, error) {
	if required, ok := f.spec.Schema["required"].([]string); ok {
		for _, name := range required {
			if _, ok := args[name]; !ok {
				return "", fmt.Errorf("%s: missing required argument %q", f.spec.Name, name)
			}
		}
	}
	return f.fn(ctx, args)
}

// Schema builds a JSON Schema object from params.
func Schema(params []Param) map[string]interface{} {
	props := make(map[string]interface{}, len(params))
	var required []string
	for _, p := range params {
		typ := p.Type
		if typ == "" {
			typ = "string"
		}
		prop := map[string]interface{}{"type": typ}
		if p.Description != "" {
			prop["description"] = p.Description
		}
		props[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}
	schema := map[string]interface{}{"type": "object", "properties": props}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// Decode converts string arguments into the struct pointed to by out,
// matching fields by their `json` tag. Numbers and booleans are parsed from
// their text form.
//
//	var in struct {
//	    Location string `json:"location"`
//	    Rooms    int    `json:"rooms"`
//	}
//	if err := tool.Decode(args, &in); err != nil { ... }
func Decode(args Arguments, out interface{}) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		TagName:          "json",
		Result:           out,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(args); err != nil {
		return fmt.Errorf("decode arguments: %w", err)
	}
	return nil
}
