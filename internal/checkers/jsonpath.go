// Package checkers provides quicktest checkers shared by the package tests.
package checkers

import (
	"encoding/json"
	"errors"
	"fmt"

	qt "github.com/frankban/quicktest"
	"github.com/yalp/jsonpath"
)

// JSONPathEquals returns a checker that decodes the obtained JSON document
// ([]byte, string or json.RawMessage), evaluates path against it and compares
// the selected value with the expected one. The expected value goes through a
// JSON round trip first, so Go ints compare equal to decoded numbers.
//
//	c.Assert(body, checkers.JSONPathEquals("$.roots[0].id"), "M1")
func JSONPathEquals(path string) qt.Checker {
	return &jsonPathChecker{path: path}
}

type jsonPathChecker struct {
	path string
}

func (c *jsonPathChecker) ArgNames() []string {
	return []string{"got", "want"}
}

func (c *jsonPathChecker) Check(got any, args []any, note func(key string, value any)) error {
	var raw []byte
	switch v := got.(type) {
	case []byte:
		raw = v
	case json.RawMessage:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return qt.BadCheckf("got must be a JSON document, not %T", got)
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		note("document", string(raw))
		return fmt.Errorf("cannot decode document: %w", err)
	}
	selected, err := jsonpath.Read(doc, c.path)
	if err != nil {
		note("path", c.path)
		return fmt.Errorf("cannot evaluate path: %w", err)
	}

	want, err := normalize(args[0])
	if err != nil {
		return qt.BadCheckf("want cannot be encoded as JSON: %v", err)
	}
	if err := qt.DeepEquals.Check(selected, []any{want}, note); err != nil {
		note("path", c.path)
		return errors.New("values at path are not equal")
	}
	return nil
}

func normalize(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}
