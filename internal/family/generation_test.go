package family_test

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/go-ports/silsilah/internal/family"
	"github.com/go-ports/silsilah/internal/models"
)

func TestGenerationLevel(t *testing.T) {
	c := qt.New(t)

	all := []models.Member{
		member("M1", "", ""),
		member("M2", "M1", ""),
		member("M3", "M2", ""),
	}

	tests := []struct {
		name string
		id   string
		want int
	}{
		{name: "root", id: "M1", want: 0},
		{name: "child", id: "M2", want: 1},
		{name: "grandchild", id: "M3", want: 2},
	}
	for _, tc := range tests {
		c.Run(tc.name, func(c *qt.C) {
			m, ok := family.FindMember(all, tc.id)
			c.Assert(ok, qt.IsTrue)
			got, err := family.GenerationLevel(m, all)
			c.Assert(err, qt.IsNil)
			c.Assert(got, qt.Equals, tc.want)
		})
	}

	c.Run("dangling parent counts as top", func(c *qt.C) {
		m := member("M5", "M404", "")
		got, err := family.GenerationLevel(&m, all)
		c.Assert(err, qt.IsNil)
		c.Assert(got, qt.Equals, 0)
	})

	c.Run("member need not be part of all", func(c *qt.C) {
		m := member("new", "M3", "")
		got, err := family.GenerationLevel(&m, all)
		c.Assert(err, qt.IsNil)
		c.Assert(got, qt.Equals, 3)
	})

	c.Run("first matching parent in input order is followed", func(c *qt.C) {
		withMother := []models.Member{
			member("Mo", "G", ""),
			member("F", "", ""),
			member("G", "", ""),
			member("C", "F", "Mo"),
		}
		m, _ := family.FindMember(withMother, "C")
		got, err := family.GenerationLevel(m, withMother)
		c.Assert(err, qt.IsNil)
		c.Assert(got, qt.Equals, 2)
	})

	c.Run("empty ids never match", func(c *qt.C) {
		withBlank := []models.Member{
			member("", "", ""),
			member("M2", "", "M1"),
		}
		m, _ := family.FindMember(withBlank, "M2")
		got, err := family.GenerationLevel(m, withBlank)
		c.Assert(err, qt.IsNil)
		c.Assert(got, qt.Equals, 0)
	})
}

func TestGenerationLevel_Cycle(t *testing.T) {
	c := qt.New(t)

	c.Run("two member loop", func(c *qt.C) {
		all := []models.Member{
			member("A", "B", ""),
			member("B", "A", ""),
		}
		_, err := family.GenerationLevel(&all[0], all)
		c.Assert(err, qt.ErrorIs, family.ErrParentCycle)
	})

	c.Run("self parent", func(c *qt.C) {
		all := []models.Member{member("A", "A", "")}
		_, err := family.GenerationLevel(&all[0], all)
		c.Assert(err, qt.ErrorIs, family.ErrParentCycle)
	})

	c.Run("loop above the member", func(c *qt.C) {
		all := []models.Member{
			member("A", "B", ""),
			member("B", "A", ""),
			member("C", "A", ""),
		}
		level, err := family.GenerationLevel(&all[2], all)
		c.Assert(err, qt.ErrorIs, family.ErrParentCycle)
		c.Assert(level, qt.Equals, 2)
		c.Assert(err, qt.ErrorMatches, `parent cycle: A reached again from B`)
	})
}

func TestFindMember(t *testing.T) {
	c := qt.New(t)

	all := []models.Member{member("M1", "", ""), member("M1", "X", "")}

	m, ok := family.FindMember(all, "M1")
	c.Assert(ok, qt.IsTrue)
	c.Assert(m.FatherID, qt.Equals, "")

	_, ok = family.FindMember(all, "M9")
	c.Assert(ok, qt.IsFalse)
}
