package store_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/go-ports/silsilah/internal/models"
	"github.com/go-ports/silsilah/internal/store"
)

// pgDSNEnv names a Postgres DSN used to run the suite against the pgx driver.
// The members table in that database is emptied before each test.
const pgDSNEnv = "SILSILAH_TEST_PG_DSN"

type opener struct {
	name string
	open func(t *testing.T) *store.Store
}

// drivers returns one opener per driver available in this environment.
func drivers() []opener {
	out := []opener{
		{name: store.DriverSQLite3, open: sqliteOpener(store.DriverSQLite3)},
		{name: store.DriverSQLite, open: sqliteOpener(store.DriverSQLite)},
	}
	if dsn := os.Getenv(pgDSNEnv); dsn != "" {
		out = append(out, opener{name: store.DriverPostgres, open: func(t *testing.T) *store.Store {
			t.Helper()
			s, err := store.Open(context.Background(), store.DriverPostgres, dsn)
			if err != nil {
				t.Fatalf("open pgx: %v", err)
			}
			t.Cleanup(func() { _ = s.Close() })
			truncate(t, s)
			return s
		}})
	}
	return out
}

func sqliteOpener(driver string) func(t *testing.T) *store.Store {
	return func(t *testing.T) *store.Store {
		t.Helper()
		s, err := store.Open(context.Background(), driver, filepath.Join(t.TempDir(), "nested", "family.db"))
		if err != nil {
			t.Fatalf("open %s: %v", driver, err)
		}
		t.Cleanup(func() { _ = s.Close() })
		return s
	}
}

func truncate(t *testing.T, s *store.Store) {
	t.Helper()
	ctx := context.Background()
	members, err := s.List(ctx)
	if err != nil {
		t.Fatalf("truncate list: %v", err)
	}
	for _, m := range members {
		if err := s.Delete(ctx, m.DocID); err != nil {
			t.Fatalf("truncate delete: %v", err)
		}
	}
}

func newMember(id, name string) *models.Member {
	return models.FromInput(&models.MemberInput{Name: name}, id)
}

// ---------------------------------------------------------------------------
// Open
// ---------------------------------------------------------------------------

func TestOpen_UnknownDriver(t *testing.T) {
	c := qt.New(t)
	_, err := store.Open(context.Background(), "mysql", "x")
	c.Assert(err, qt.ErrorIs, store.ErrUnknownDriver)
}

func TestOpen_PostgresRequiresDSN(t *testing.T) {
	c := qt.New(t)
	_, err := store.Open(context.Background(), store.DriverPostgres, "")
	c.Assert(err, qt.ErrorMatches, `store.Open: pgx driver requires store.dsn`)
}

func TestMemberIDs_ErrorsAreWrapped(t *testing.T) {
	c := qt.New(t)
	s := sqliteOpener(store.DriverSQLite3)(t)
	_, err := s.Insert(context.Background(), newMember("M1", "Ahmad"))
	c.Assert(err, qt.IsNil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ids, err := s.MemberIDs(ctx)
	c.Assert(err, qt.ErrorIs, context.Canceled)
	c.Assert(err, qt.ErrorMatches, `MemberIDs: .*`)
	c.Assert(ids, qt.IsNil)

	c.Assert(s.Close(), qt.IsNil)
	_, err = s.MemberIDs(context.Background())
	c.Assert(err, qt.ErrorMatches, `MemberIDs: .*closed.*`)
}

func TestOpen_ReopenKeepsData(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "family.db")

	s, err := store.Open(ctx, store.DriverSQLite3, path)
	c.Assert(err, qt.IsNil)
	_, err = s.Insert(ctx, newMember("M1", "Ahmad"))
	c.Assert(err, qt.IsNil)
	c.Assert(s.Close(), qt.IsNil)

	s, err = store.Open(ctx, store.DriverSQLite3, path)
	c.Assert(err, qt.IsNil)
	defer s.Close()
	n, err := s.Count(ctx)
	c.Assert(err, qt.IsNil)
	c.Assert(n, qt.Equals, 1)
}

// ---------------------------------------------------------------------------
// CRUD round trip, every driver
// ---------------------------------------------------------------------------

func TestStore_RoundTrip(t *testing.T) {
	for _, d := range drivers() {
		t.Run(d.name, func(t *testing.T) {
			c := qt.New(t)
			ctx := context.Background()

			c.Run("insert assigns doc id and get returns every field", func(c *qt.C) {
				s := d.open(t)
				m := newMember("M7", "Siti")
				m.Gender = models.GenderFemale
				m.BirthYear = models.Year(1950)
				m.IsDeceased = true
				m.FatherID = "M1"
				m.MotherID = "M2"
				m.SpouseIDs = []string{"M9", "M10"}

				docID, err := s.Insert(ctx, m)
				c.Assert(err, qt.IsNil)
				c.Assert(docID, qt.Not(qt.Equals), "")
				c.Assert(m.DocID, qt.Equals, docID)

				got, err := s.Get(ctx, docID)
				c.Assert(err, qt.IsNil)
				c.Assert(got.ID, qt.Equals, "M7")
				c.Assert(got.Name, qt.Equals, "Siti")
				c.Assert(got.Gender, qt.Equals, models.GenderFemale)
				c.Assert(*got.BirthYear, qt.Equals, 1950)
				c.Assert(got.DeathYear, qt.IsNil)
				c.Assert(got.IsDeceased, qt.IsTrue)
				c.Assert(got.FatherID, qt.Equals, "M1")
				c.Assert(got.MotherID, qt.Equals, "M2")
				c.Assert(got.SpouseIDs, qt.DeepEquals, []string{"M9", "M10"})
				c.Assert(got.CreatedAt.Equal(m.CreatedAt), qt.IsTrue)
			})

			c.Run("list is ordered by name", func(c *qt.C) {
				s := d.open(t)
				for _, m := range []*models.Member{
					newMember("M1", "Zainab"),
					newMember("M2", "Ahmad"),
					newMember("M3", "Mariam"),
				} {
					_, err := s.Insert(ctx, m)
					c.Assert(err, qt.IsNil)
				}

				list, err := s.List(ctx)
				c.Assert(err, qt.IsNil)
				names := make([]string, 0, len(list))
				for _, m := range list {
					names = append(names, m.Name)
				}
				c.Assert(names, qt.DeepEquals, []string{"Ahmad", "Mariam", "Zainab"})
				c.Assert(list[0].SpouseIDs, qt.DeepEquals, []string{})
			})

			c.Run("empty store lists nothing", func(c *qt.C) {
				s := d.open(t)
				list, err := s.List(ctx)
				c.Assert(err, qt.IsNil)
				c.Assert(list, qt.HasLen, 0)
			})

			c.Run("update changes only patched fields", func(c *qt.C) {
				s := d.open(t)
				m := newMember("M1", "Ali")
				m.BirthYear = models.Year(1900)
				m.DeathYear = models.Year(1970)
				docID, err := s.Insert(ctx, m)
				c.Assert(err, qt.IsNil)

				name := "Ali bin Abu"
				spouses := []string{"M2"}
				err = s.Update(ctx, docID, &models.MemberPatch{
					Name:           &name,
					SpouseIDs:      &spouses,
					ClearDeathYear: true,
				})
				c.Assert(err, qt.IsNil)

				got, err := s.Get(ctx, docID)
				c.Assert(err, qt.IsNil)
				c.Assert(got.Name, qt.Equals, "Ali bin Abu")
				c.Assert(got.SpouseIDs, qt.DeepEquals, []string{"M2"})
				c.Assert(*got.BirthYear, qt.Equals, 1900)
				c.Assert(got.DeathYear, qt.IsNil)
				c.Assert(got.ID, qt.Equals, "M1")
				c.Assert(got.UpdatedAt.Before(got.CreatedAt), qt.IsFalse)
			})

			c.Run("unknown doc id is not found", func(c *qt.C) {
				s := d.open(t)
				name := "x"
				c.Assert(s.Update(ctx, "nope", &models.MemberPatch{Name: &name}), qt.ErrorIs, store.ErrNotFound)
				c.Assert(s.Delete(ctx, "nope"), qt.ErrorIs, store.ErrNotFound)
				_, err := s.Get(ctx, "nope")
				c.Assert(err, qt.ErrorIs, store.ErrNotFound)
				_, err = s.GetByMemberID(ctx, "M404")
				c.Assert(err, qt.ErrorIs, store.ErrNotFound)
			})

			c.Run("delete removes the record", func(c *qt.C) {
				s := d.open(t)
				docID, err := s.Insert(ctx, newMember("M1", "Ali"))
				c.Assert(err, qt.IsNil)
				c.Assert(s.Delete(ctx, docID), qt.IsNil)
				n, err := s.Count(ctx)
				c.Assert(err, qt.IsNil)
				c.Assert(n, qt.Equals, 0)
			})

			c.Run("domain ids are not unique", func(c *qt.C) {
				s := d.open(t)
				first := newMember("M1", "First")
				_, err := s.Insert(ctx, first)
				c.Assert(err, qt.IsNil)
				second := newMember("M1", "Second")
				second.CreatedAt = first.CreatedAt.Add(1)
				_, err = s.Insert(ctx, second)
				c.Assert(err, qt.IsNil)

				got, err := s.GetByMemberID(ctx, "M1")
				c.Assert(err, qt.IsNil)
				c.Assert(got.Name, qt.Equals, "First")

				ids, err := s.MemberIDs(ctx)
				c.Assert(err, qt.IsNil)
				c.Assert(ids, qt.DeepEquals, []string{"M1", "M1"})
			})

			c.Run("search by name is case insensitive", func(c *qt.C) {
				s := d.open(t)
				for _, m := range []*models.Member{
					newMember("M1", "Abdul Rahman"),
					newMember("M2", "Rahmah"),
					newMember("M3", "Yusof"),
					newMember("M4", "100% Rahim"),
				} {
					_, err := s.Insert(ctx, m)
					c.Assert(err, qt.IsNil)
				}

				got, err := s.SearchByName(ctx, "RAHM", 10)
				c.Assert(err, qt.IsNil)
				c.Assert(got, qt.HasLen, 2)
				c.Assert(got[0].ID, qt.Equals, "M1")
				c.Assert(got[1].ID, qt.Equals, "M2")

				got, err = s.SearchByName(ctx, "%", 10)
				c.Assert(err, qt.IsNil)
				c.Assert(got, qt.HasLen, 1)
				c.Assert(got[0].ID, qt.Equals, "M4")

				got, err = s.SearchByName(ctx, "", 1)
				c.Assert(err, qt.IsNil)
				c.Assert(got, qt.HasLen, 1)
			})
		})
	}
}
