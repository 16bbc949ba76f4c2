package checkers_test

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/go-ports/silsilah/internal/checkers"
)

const doc = `{"strategy":"primary","roots":[{"id":"M1","birth_year":1920,"children":[{"id":"M2","children":[]}]}]}`

func TestJSONPathEquals(t *testing.T) {
	c := qt.New(t)

	c.Assert(doc, checkers.JSONPathEquals("$.strategy"), "primary")
	c.Assert([]byte(doc), checkers.JSONPathEquals("$.roots[0].children[0].id"), "M2")
	c.Assert(doc, checkers.JSONPathEquals("$.roots[0].birth_year"), 1920)
	c.Assert(doc, checkers.JSONPathEquals("$.roots[*].id"), []string{"M1"})
	c.Assert(doc, qt.Not(checkers.JSONPathEquals("$.strategy")), "structural")
}

func TestJSONPathEquals_Errors(t *testing.T) {
	c := qt.New(t)

	checker := checkers.JSONPathEquals("$.strategy")
	noop := func(string, any) {}

	c.Assert(checker.Check("{not json", []any{"x"}, noop), qt.IsNotNil)
	c.Assert(checker.Check(42, []any{"x"}, noop), qt.IsNotNil)
	c.Assert(checkers.JSONPathEquals("$.missing").Check(doc, []any{"x"}, noop), qt.IsNotNil)
}
