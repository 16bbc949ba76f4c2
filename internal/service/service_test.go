package service_test

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/go-ports/silsilah/internal/blob"
	"github.com/go-ports/silsilah/internal/config"
	"github.com/go-ports/silsilah/internal/family"
	"github.com/go-ports/silsilah/internal/models"
	"github.com/go-ports/silsilah/internal/service"
	"github.com/go-ports/silsilah/internal/store"
)

func newService(c *qt.C, opts ...service.Option) *service.Service {
	c.Helper()
	opts = append([]service.Option{service.WithBackupStore(blob.NewMemory())}, opts...)
	svc, err := service.New(context.Background(), c.TempDir(), opts...)
	c.Assert(err, qt.IsNil)
	c.Cleanup(func() { _ = svc.Close() })
	return svc
}

func add(c *qt.C, svc *service.Service, in models.MemberInput) *models.SaveResult {
	c.Helper()
	res, err := svc.AddMember(context.Background(), &in)
	c.Assert(err, qt.IsNil)
	return res
}

// ---------------------------------------------------------------------------
// New
// ---------------------------------------------------------------------------

func TestNew(t *testing.T) {
	c := qt.New(t)

	c.Run("creates home and store file", func(c *qt.C) {
		home := filepath.Join(c.TempDir(), "family")
		svc, err := service.New(context.Background(), home)
		c.Assert(err, qt.IsNil)
		defer svc.Close()
		c.Assert(svc.Home, qt.Equals, home)
		_, err = os.Stat(filepath.Join(home, "family.db"))
		c.Assert(err, qt.IsNil)
		c.Assert(svc.Translator().Lang(), qt.Equals, "en")
	})

	c.Run("language comes from config unless overridden", func(c *qt.C) {
		home := c.TempDir()
		c.Assert(os.WriteFile(filepath.Join(home, config.FileName), []byte("language: ms\n"), 0o600), qt.IsNil)

		svc, err := service.New(context.Background(), home)
		c.Assert(err, qt.IsNil)
		c.Assert(svc.Translator().Lang(), qt.Equals, "ms")
		c.Assert(svc.Close(), qt.IsNil)

		svc, err = service.New(context.Background(), home, service.WithLanguage("en"))
		c.Assert(err, qt.IsNil)
		defer svc.Close()
		c.Assert(svc.Translator().Lang(), qt.Equals, "en")
	})

	c.Run("unknown store driver fails", func(c *qt.C) {
		home := c.TempDir()
		c.Assert(os.WriteFile(filepath.Join(home, config.FileName), []byte("store:\n  driver: mysql\n"), 0o600), qt.IsNil)
		_, err := service.New(context.Background(), home)
		c.Assert(err, qt.ErrorIs, store.ErrUnknownDriver)
	})

	c.Run("cgo-free sqlite driver", func(c *qt.C) {
		home := c.TempDir()
		c.Assert(os.WriteFile(filepath.Join(home, config.FileName), []byte("store:\n  driver: sqlite\n"), 0o600), qt.IsNil)
		svc, err := service.New(context.Background(), home)
		c.Assert(err, qt.IsNil)
		defer svc.Close()
		res, err := svc.AddMember(context.Background(), &models.MemberInput{Name: "Ahmad"})
		c.Assert(err, qt.IsNil)
		c.Assert(res.ID, qt.Equals, "M1")
	})
}

// ---------------------------------------------------------------------------
// Members
// ---------------------------------------------------------------------------

func TestAddMember(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()

	c.Run("ids are allocated in sequence", func(c *qt.C) {
		svc := newService(c)
		c.Assert(add(c, svc, models.MemberInput{Name: "Ahmad"}).ID, qt.Equals, "M1")
		c.Assert(add(c, svc, models.MemberInput{Name: "Siti"}).ID, qt.Equals, "M2")
	})

	c.Run("provided id is kept and allocation continues after it", func(c *qt.C) {
		svc := newService(c)
		c.Assert(add(c, svc, models.MemberInput{ID: "M40", Name: "Ahmad"}).ID, qt.Equals, "M40")
		c.Assert(add(c, svc, models.MemberInput{Name: "Siti"}).ID, qt.Equals, "M41")
	})

	c.Run("defaults are applied", func(c *qt.C) {
		svc := newService(c)
		res := add(c, svc, models.MemberInput{Name: "Ali", BirthYear: models.Year(0)})
		m, err := svc.GetMember(ctx, res.DocID)
		c.Assert(err, qt.IsNil)
		c.Assert(m.Gender, qt.Equals, models.GenderMale)
		c.Assert(m.BirthYear, qt.IsNil)
		c.Assert(m.SpouseIDs, qt.DeepEquals, []string{})
	})

	c.Run("blank name is stored empty", func(c *qt.C) {
		svc := newService(c)
		res := add(c, svc, models.MemberInput{Name: " "})
		c.Assert(res.ID, qt.Equals, "M1")
		m, err := svc.GetMember(ctx, res.DocID)
		c.Assert(err, qt.IsNil)
		c.Assert(m.Name, qt.Equals, "")
	})
}

func TestUpdateDeleteResolve(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	svc := newService(c)
	res := add(c, svc, models.MemberInput{Name: "Ali", BirthYear: models.Year(1900)})

	name := "Ali bin Abu"
	m, err := svc.UpdateMember(ctx, res.DocID, &models.MemberPatch{Name: &name, DeathYear: models.Year(1970)})
	c.Assert(err, qt.IsNil)
	c.Assert(m.Name, qt.Equals, "Ali bin Abu")
	c.Assert(*m.DeathYear, qt.Equals, 1970)

	m, err = svc.UpdateMember(ctx, res.DocID, &models.MemberPatch{})
	c.Assert(err, qt.IsNil)
	c.Assert(m.Name, qt.Equals, "Ali bin Abu")

	m, err = svc.UpdateMember(ctx, res.DocID, &models.MemberPatch{SpouseIDs: &[]string{" M2 ", "", " "}})
	c.Assert(err, qt.IsNil)
	c.Assert(m.SpouseIDs, qt.DeepEquals, []string{"M2"})

	byDoc, err := svc.ResolveMember(ctx, res.DocID)
	c.Assert(err, qt.IsNil)
	byID, err := svc.ResolveMember(ctx, "M1")
	c.Assert(err, qt.IsNil)
	c.Assert(byDoc.DocID, qt.Equals, byID.DocID)

	c.Assert(svc.DeleteMember(ctx, res.DocID), qt.IsNil)
	c.Assert(svc.DeleteMember(ctx, res.DocID), qt.ErrorIs, store.ErrNotFound)
	_, err = svc.ResolveMember(ctx, "M1")
	c.Assert(err, qt.ErrorIs, store.ErrNotFound)
	_, err = svc.UpdateMember(ctx, res.DocID, &models.MemberPatch{Name: &name})
	c.Assert(err, qt.ErrorIs, store.ErrNotFound)
}

func TestSearch(t *testing.T) {
	c := qt.New(t)
	svc := newService(c)
	add(c, svc, models.MemberInput{Name: "Abdul Rahman"})
	add(c, svc, models.MemberInput{Name: "Yusof"})

	got, err := svc.Search(context.Background(), " rahman ", 5)
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.HasLen, 1)
	c.Assert(got[0].Name, qt.Equals, "Abdul Rahman")
}

// ---------------------------------------------------------------------------
// Tree / Generation / Diagnose
// ---------------------------------------------------------------------------

func seedFamily(c *qt.C, svc *service.Service) {
	c.Helper()
	_, err := svc.Import(context.Background(), []models.MemberInput{
		{ID: "M1", Name: "Ahmad", BirthYear: models.Year(1920), SpouseIDs: []string{"M2"}},
		{ID: "M2", Name: "Siti", Gender: "female", BirthYear: models.Year(1925)},
		{ID: "M3", Name: "Ali", FatherID: "M1", MotherID: "M2", BirthYear: models.Year(1950)},
		{ID: "M4", Name: "Aminah", Gender: "female", FatherID: "M3"},
	})
	c.Assert(err, qt.IsNil)
}

func TestTree(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()

	c.Run("empty store", func(c *qt.C) {
		svc := newService(c)
		f, err := svc.Tree(ctx)
		c.Assert(err, qt.IsNil)
		c.Assert(f.Roots, qt.HasLen, 0)
		c.Assert(f.Report.Strategy, qt.Equals, family.StrategyNone)
	})

	c.Run("spouse merged into a single root", func(c *qt.C) {
		svc := newService(c)
		seedFamily(c, svc)
		f, err := svc.Tree(ctx)
		c.Assert(err, qt.IsNil)
		c.Assert(f.Members, qt.Equals, 4)
		c.Assert(f.Report.Strategy, qt.Equals, family.StrategyPrimary)
		c.Assert(f.Roots, qt.HasLen, 1)
		c.Assert(f.Roots[0].ID, qt.Equals, "M1")
		c.Assert(f.Roots[0].Children, qt.HasLen, 1)
		c.Assert(f.Roots[0].Children[0].Children[0].ID, qt.Equals, "M4")
	})
}

func TestGeneration(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()

	c.Run("levels by member id", func(c *qt.C) {
		svc := newService(c)
		seedFamily(c, svc)
		for id, want := range map[string]int{"M1": 0, "M3": 1, "M4": 2} {
			m, level, err := svc.Generation(ctx, id)
			c.Assert(err, qt.IsNil)
			c.Assert(m.ID, qt.Equals, id)
			c.Assert(level, qt.Equals, want, qt.Commentf("member %s", id))
		}
	})

	c.Run("parent cycle", func(c *qt.C) {
		svc := newService(c)
		_, err := svc.Import(ctx, []models.MemberInput{
			{ID: "A", Name: "A", FatherID: "B"},
			{ID: "B", Name: "B", FatherID: "A"},
		})
		c.Assert(err, qt.IsNil)
		_, _, err = svc.Generation(ctx, "A")
		c.Assert(err, qt.ErrorIs, family.ErrParentCycle)
	})

	c.Run("unknown member", func(c *qt.C) {
		svc := newService(c)
		_, _, err := svc.Generation(ctx, "M9")
		c.Assert(err, qt.ErrorIs, store.ErrNotFound)
	})
}

func TestDiagnose(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	svc := newService(c)
	seedFamily(c, svc)

	d, err := svc.Diagnose(ctx)
	c.Assert(err, qt.IsNil)
	c.Assert(d.Members, qt.Equals, 4)
	// M1 lists M2 as spouse but not the other way round.
	c.Assert(d.Issues, qt.HasLen, 1)
	c.Assert(d.Issues[0].Kind, qt.Equals, family.IssueAsymmetricSpouse)
}

// ---------------------------------------------------------------------------
// Import / Export
// ---------------------------------------------------------------------------

// rejectName installs a trigger that makes the store refuse any insert of a
// member called name.
func rejectName(c *qt.C, svc *service.Service, name string) {
	c.Helper()
	db, err := sql.Open(store.DriverSQLite3, svc.Config.StoreDSN(svc.Home))
	c.Assert(err, qt.IsNil)
	defer db.Close()
	_, err = db.Exec(`CREATE TRIGGER reject_name BEFORE INSERT ON members
		WHEN NEW.name = '` + name + `'
		BEGIN SELECT RAISE(ABORT, 'rejected by trigger'); END`)
	c.Assert(err, qt.IsNil)
}

func TestImport_StopsAtFirstFailure(t *testing.T) {
	c := qt.New(t)
	svc := newService(c)
	rejectName(c, svc, "Never")

	res, err := svc.Import(context.Background(), []models.MemberInput{
		{Name: "Ahmad"},
		{Name: "Siti"},
		{Name: "Never"},
		{Name: "After"},
	})
	c.Assert(err, qt.ErrorMatches, `Import: record 3: .*rejected by trigger.*`)
	c.Assert(res.Count, qt.Equals, 2)
	c.Assert(res.IDs, qt.DeepEquals, []string{"M1", "M2"})

	n, err := svc.CountMembers(context.Background())
	c.Assert(err, qt.IsNil)
	c.Assert(n, qt.Equals, 2)
}

func TestImport_EmptyName(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	svc := newService(c)

	data := `[{"id":"M1","name":"Ahmad"},{"id":"M2","name":"","father_id":"M1"},{"id":"M3","name":"Ali","father_id":"M2"}]`
	res, err := svc.ImportFrom(ctx, strings.NewReader(data), service.FormatJSON)
	c.Assert(err, qt.IsNil)
	c.Assert(res.Count, qt.Equals, 3)
	c.Assert(res.IDs, qt.DeepEquals, []string{"M1", "M2", "M3"})

	var buf bytes.Buffer
	_, err = svc.Export(ctx, &buf, service.FormatJSON)
	c.Assert(err, qt.IsNil)

	dst := newService(c)
	res, err = dst.ImportFrom(ctx, &buf, service.FormatJSON)
	c.Assert(err, qt.IsNil)
	c.Assert(res.Count, qt.Equals, 3)

	m, err := dst.ResolveMember(ctx, "M2")
	c.Assert(err, qt.IsNil)
	c.Assert(m.Name, qt.Equals, "")
	c.Assert(m.FatherID, qt.Equals, "M1")
}

func TestExportImport_RoundTrip(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()

	for _, f := range []service.Format{service.FormatJSON, service.FormatYAML} {
		c.Run(string(f), func(c *qt.C) {
			src := newService(c)
			seedFamily(c, src)

			var buf bytes.Buffer
			n, err := src.Export(ctx, &buf, f)
			c.Assert(err, qt.IsNil)
			c.Assert(n, qt.Equals, 4)
			c.Assert(buf.String(), qt.Not(qt.Contains), "doc_id")

			dst := newService(c)
			res, err := dst.ImportFrom(ctx, &buf, f)
			c.Assert(err, qt.IsNil)
			c.Assert(res.Count, qt.Equals, 4)

			want, err := src.ListMembers(ctx)
			c.Assert(err, qt.IsNil)
			got, err := dst.ListMembers(ctx)
			c.Assert(err, qt.IsNil)
			c.Assert(got, qt.HasLen, len(want))
			for i := range want {
				c.Assert(got[i].ToInput(), qt.DeepEquals, want[i].ToInput())
			}
		})
	}
}

func TestDecodeMembers(t *testing.T) {
	c := qt.New(t)

	c.Run("yaml", func(c *qt.C) {
		in := "- id: M1\n  name: Ahmad\n  birth_year: 1920\n- name: Siti\n  gender: female\n"
		got, err := service.DecodeMembers(strings.NewReader(in), service.FormatYAML)
		c.Assert(err, qt.IsNil)
		c.Assert(got, qt.HasLen, 2)
		c.Assert(*got[0].BirthYear, qt.Equals, 1920)
		c.Assert(got[1].Gender, qt.Equals, "female")
	})

	c.Run("empty yaml", func(c *qt.C) {
		got, err := service.DecodeMembers(strings.NewReader(""), service.FormatYAML)
		c.Assert(err, qt.IsNil)
		c.Assert(got, qt.HasLen, 0)
	})

	c.Run("malformed json", func(c *qt.C) {
		_, err := service.DecodeMembers(strings.NewReader("{"), service.FormatJSON)
		c.Assert(err, qt.IsNotNil)
	})
}

func TestFormats(t *testing.T) {
	c := qt.New(t)
	c.Assert(service.FormatForPath("family.YML"), qt.Equals, service.FormatYAML)
	c.Assert(service.FormatForPath("family.json"), qt.Equals, service.FormatJSON)
	c.Assert(service.FormatForPath("family"), qt.Equals, service.FormatJSON)
	c.Assert(service.FormatForPath("register.md"), qt.Equals, service.FormatMarkdown)

	f, err := service.ParseFormat("yaml")
	c.Assert(err, qt.IsNil)
	c.Assert(f, qt.Equals, service.FormatYAML)
	f, err = service.ParseFormat("MD")
	c.Assert(err, qt.IsNil)
	c.Assert(f, qt.Equals, service.FormatMarkdown)
	_, err = service.ParseFormat("csv")
	c.Assert(err, qt.ErrorMatches, `unknown format "csv".*`)
}

func TestExport_Markdown(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	svc := newService(c)
	seedFamily(c, svc)

	var buf bytes.Buffer
	n, err := svc.Export(ctx, &buf, service.FormatMarkdown)
	c.Assert(err, qt.IsNil)
	c.Assert(n, qt.Equals, 4)
	c.Assert(buf.String(), qt.Contains, "members: 4\nroots: 1\nstrategy: primary\n")
	c.Assert(buf.String(), qt.Contains, "\n- **Ahmad** (M1) · Male · b. 1920 · spouse: M2\n  - **Ali** (M3)")
	c.Assert(buf.String(), qt.Contains, "    - **Aminah** (M4) · Female\n")

	_, err = svc.ImportFrom(ctx, &buf, service.FormatMarkdown)
	c.Assert(err, qt.ErrorIs, service.ErrExportOnly)
}

// ---------------------------------------------------------------------------
// Backup / Restore
// ---------------------------------------------------------------------------

func TestBackupRestore(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	backups := blob.NewMemory()

	src := newService(c, service.WithBackupStore(backups))
	seedFamily(c, src)

	res, err := src.Backup(ctx)
	c.Assert(err, qt.IsNil)
	c.Assert(res.Members, qt.Equals, 4)
	c.Assert(res.Key, qt.Matches, `snapshots/\d{8}T\d{6}\.\d{9}Z\.json`)
	c.Assert(res.Size > 0, qt.IsTrue)

	infos, err := src.ListBackups(ctx)
	c.Assert(err, qt.IsNil)
	c.Assert(infos, qt.HasLen, 1)
	c.Assert(infos[0].Metadata["members"], qt.Equals, "4")

	c.Run("non-empty store is refused", func(c *qt.C) {
		_, _, err := src.Restore(ctx, res.Key)
		c.Assert(err, qt.ErrorIs, service.ErrStoreNotEmpty)
	})

	c.Run("latest snapshot restores into an empty store", func(c *qt.C) {
		dst := newService(c, service.WithBackupStore(backups))
		got, key, err := dst.Restore(ctx, "")
		c.Assert(err, qt.IsNil)
		c.Assert(key, qt.Equals, res.Key)
		c.Assert(got.Count, qt.Equals, 4)
		c.Assert(got.IDs, qt.DeepEquals, []string{"M1", "M3", "M4", "M2"})
	})

	c.Run("unknown key", func(c *qt.C) {
		dst := newService(c, service.WithBackupStore(backups))
		_, _, err := dst.Restore(ctx, "snapshots/nope.json")
		c.Assert(errors.Is(err, blob.ErrNotFound), qt.IsTrue)
	})

	c.Run("no snapshots", func(c *qt.C) {
		dst := newService(c)
		_, _, err := dst.Restore(ctx, "")
		c.Assert(err, qt.ErrorIs, blob.ErrNotFound)
	})
}

func TestBackup_FilesystemDriverFromConfig(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	home := c.TempDir()

	svc, err := service.New(ctx, home)
	c.Assert(err, qt.IsNil)
	defer svc.Close()
	add(c, svc, models.MemberInput{Name: "Ahmad"})

	res, err := svc.Backup(ctx)
	c.Assert(err, qt.IsNil)
	_, err = os.Stat(filepath.Join(home, "backups", filepath.FromSlash(res.Key)))
	c.Assert(err, qt.IsNil)
}
