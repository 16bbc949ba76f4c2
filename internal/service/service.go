// Package service implements the family Service that wires together
// configuration, the member store, the backup blob store, translations and
// the tree algorithms.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-ports/silsilah/internal/blob"
	"github.com/go-ports/silsilah/internal/config"
	"github.com/go-ports/silsilah/internal/family"
	"github.com/go-ports/silsilah/internal/i18n"
	"github.com/go-ports/silsilah/internal/models"
	"github.com/go-ports/silsilah/internal/store"
)

var (
	// ErrInvalidMember is returned when a member record fails validation.
	ErrInvalidMember = errors.New("invalid member")
	// ErrStoreNotEmpty is returned by Restore when members already exist.
	ErrStoreNotEmpty = errors.New("store is not empty")
)

// Service orchestrates all family operations.
type Service struct {
	Home   string
	Config *config.Config

	store   *store.Store
	tr      *i18n.Translator
	logger  *slog.Logger
	backups blob.Store
	mu      sync.Mutex
}

type options struct {
	lang    string
	logger  *slog.Logger
	backups blob.Store
}

// Option configures New.
type Option func(*options)

// WithLanguage overrides the configured language.
func WithLanguage(lang string) Option {
	return func(o *options) { o.lang = lang }
}

// WithLogger sets the logger used by the service and the tree builder.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithBackupStore replaces the configured backup driver.
func WithBackupStore(b blob.Store) Option {
	return func(o *options) { o.backups = b }
}

// New initialises a Service rooted at home.
// If home is empty it is resolved via config.GetHome.
func New(ctx context.Context, home string, opts ...Option) (*Service, error) {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	if home == "" {
		home = config.GetHome()
	}
	if err := os.MkdirAll(home, 0o755); err != nil {
		return nil, fmt.Errorf("service.New: create home: %w", err)
	}

	cfg, err := config.Load(filepath.Join(home, config.FileName))
	if err != nil {
		return nil, fmt.Errorf("service.New: load config: %w", err)
	}

	st, err := store.Open(ctx, cfg.Store.Driver, cfg.StoreDSN(home))
	if err != nil {
		return nil, fmt.Errorf("service.New: open store: %w", err)
	}

	lang := cfg.Language
	if o.lang != "" {
		lang = o.lang
	}

	return &Service{
		Home:    home,
		Config:  cfg,
		store:   st,
		tr:      i18n.New(lang),
		logger:  o.logger,
		backups: o.backups,
	}, nil
}

// Close releases all resources held by the service.
func (s *Service) Close() error {
	return s.store.Close()
}

// Translator returns the translator for the active language.
func (s *Service) Translator() *i18n.Translator { return s.tr }

// ---------------------------------------------------------------------------
// Lazy helpers
// ---------------------------------------------------------------------------

// backupStore returns the blob store, lazily opening it (thread-safe).
func (s *Service) backupStore(ctx context.Context) (blob.Store, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.backups != nil {
		return s.backups, nil
	}
	b, err := blob.Open(ctx, blob.Options{
		Driver: s.Config.Backup.Driver,
		FSRoot: s.Config.BackupRoot(s.Home),
		S3: blob.S3Config{
			Bucket:    s.Config.Backup.S3.Bucket,
			Region:    s.Config.Backup.S3.Region,
			Endpoint:  s.Config.Backup.S3.Endpoint,
			PathStyle: s.Config.Backup.S3.PathStyle,
		},
	})
	if err != nil {
		return nil, err
	}
	s.backups = b
	return b, nil
}

// ---------------------------------------------------------------------------
// Internal helpers
// ---------------------------------------------------------------------------

// normalizeInput trims text fields and treats a zero year as absent. Names
// may be empty.
func normalizeInput(in *models.MemberInput) error {
	in.ID = strings.TrimSpace(in.ID)
	in.Name = strings.TrimSpace(in.Name)
	in.BirthYear = nonZero(in.BirthYear)
	in.DeathYear = nonZero(in.DeathYear)
	return nil
}

func nonZero(y *int) *int {
	if y == nil || *y == 0 {
		return nil
	}
	return y
}

// normalizePatch applies the same rules as normalizeInput to set fields.
func normalizePatch(p *models.MemberPatch) error {
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		p.Name = &name
	}
	if p.ID != nil {
		id := strings.TrimSpace(*p.ID)
		if id == "" {
			return fmt.Errorf("%w: id cannot be empty", ErrInvalidMember)
		}
		p.ID = &id
	}
	if p.Gender != nil {
		g := string(models.ParseGender(*p.Gender))
		p.Gender = &g
	}
	if p.SpouseIDs != nil {
		spouses := models.CleanIDs(*p.SpouseIDs)
		p.SpouseIDs = &spouses
	}
	if p.BirthYear != nil && *p.BirthYear == 0 {
		p.BirthYear = nil
		p.ClearBirthYear = true
	}
	if p.DeathYear != nil && *p.DeathYear == 0 {
		p.DeathYear = nil
		p.ClearDeathYear = true
	}
	return nil
}

// ---------------------------------------------------------------------------
// Members
// ---------------------------------------------------------------------------

// AddMember validates in, allocates the next member id when in.ID is empty,
// and stores the record.
func (s *Service) AddMember(ctx context.Context, in *models.MemberInput) (*models.SaveResult, error) {
	if err := normalizeInput(in); err != nil {
		return nil, fmt.Errorf("AddMember: %w", err)
	}

	id := in.ID
	if id == "" {
		ids, err := s.store.MemberIDs(ctx)
		if err != nil {
			return nil, fmt.Errorf("AddMember: %w", err)
		}
		id = family.NextMemberID(ids)
	}

	m := models.FromInput(in, id)
	docID, err := s.store.Insert(ctx, m)
	if err != nil {
		return nil, fmt.Errorf("AddMember: %w", err)
	}
	s.logger.Debug("member added", "id", id, "doc_id", docID)
	return &models.SaveResult{ID: id, DocID: docID}, nil
}

// UpdateMember applies patch to the member stored under docID and returns
// the updated record.
func (s *Service) UpdateMember(ctx context.Context, docID string, patch *models.MemberPatch) (*models.Member, error) {
	if err := normalizePatch(patch); err != nil {
		return nil, fmt.Errorf("UpdateMember: %w", err)
	}
	if !patch.Empty() {
		if err := s.store.Update(ctx, docID, patch); err != nil {
			return nil, fmt.Errorf("UpdateMember: %w", err)
		}
	}
	m, err := s.store.Get(ctx, docID)
	if err != nil {
		return nil, fmt.Errorf("UpdateMember: %w", err)
	}
	return m, nil
}

// DeleteMember removes the member stored under docID. Children and spouses
// that reference it are left as they are.
func (s *Service) DeleteMember(ctx context.Context, docID string) error {
	if err := s.store.Delete(ctx, docID); err != nil {
		return fmt.Errorf("DeleteMember: %w", err)
	}
	return nil
}

// GetMember returns the member stored under docID.
func (s *Service) GetMember(ctx context.Context, docID string) (*models.Member, error) {
	m, err := s.store.Get(ctx, docID)
	if err != nil {
		return nil, fmt.Errorf("GetMember: %w", err)
	}
	return m, nil
}

// ResolveMember looks ref up as a doc id first and then as a member id.
func (s *Service) ResolveMember(ctx context.Context, ref string) (*models.Member, error) {
	m, err := s.store.Get(ctx, ref)
	if errors.Is(err, store.ErrNotFound) {
		m, err = s.store.GetByMemberID(ctx, ref)
	}
	if err != nil {
		return nil, fmt.Errorf("ResolveMember: %w", err)
	}
	return m, nil
}

// ListMembers returns a snapshot of every member ordered by name.
func (s *Service) ListMembers(ctx context.Context) ([]models.Member, error) {
	members, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListMembers: %w", err)
	}
	return members, nil
}

// CountMembers returns the number of stored members.
func (s *Service) CountMembers(ctx context.Context) (int, error) {
	return s.store.Count(ctx)
}

// Search returns up to limit members whose name contains query.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]models.Member, error) {
	members, err := s.store.SearchByName(ctx, strings.TrimSpace(query), limit)
	if err != nil {
		return nil, fmt.Errorf("Search: %w", err)
	}
	return members, nil
}

// ---------------------------------------------------------------------------
// Tree, generation, diagnostics
// ---------------------------------------------------------------------------

// Forest is a built family tree with the report describing how it was built.
type Forest struct {
	Roots   []*models.TreeNode `json:"roots"`
	Report  family.Report      `json:"report"`
	Members int                `json:"members"`
}

// Tree builds the forest from a fresh snapshot of the store.
func (s *Service) Tree(ctx context.Context) (*Forest, error) {
	members, err := s.ListMembers(ctx)
	if err != nil {
		return nil, fmt.Errorf("Tree: %w", err)
	}
	roots, report := family.BuildTreeWithReport(members, family.WithLogger(s.logger))
	return &Forest{Roots: roots, Report: report, Members: len(members)}, nil
}

// Generation resolves ref (doc id or member id) and returns the member with
// its generation level. A parent cycle returns the partial level and an
// error wrapping family.ErrParentCycle.
func (s *Service) Generation(ctx context.Context, ref string) (*models.Member, int, error) {
	m, err := s.ResolveMember(ctx, ref)
	if err != nil {
		return nil, 0, fmt.Errorf("Generation: %w", err)
	}
	members, err := s.ListMembers(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("Generation: %w", err)
	}
	level, err := family.GenerationLevel(m, members)
	if err != nil {
		return m, level, fmt.Errorf("Generation: %w", err)
	}
	return m, level, nil
}

// Diagnostics is the result of Diagnose.
type Diagnostics struct {
	Members int            `json:"members"`
	Issues  []family.Issue `json:"issues"`
}

// Diagnose reports data-quality issues in the current snapshot.
func (s *Service) Diagnose(ctx context.Context) (*Diagnostics, error) {
	members, err := s.ListMembers(ctx)
	if err != nil {
		return nil, fmt.Errorf("Diagnose: %w", err)
	}
	issues := family.Diagnose(members)
	if issues == nil {
		issues = make([]family.Issue, 0)
	}
	return &Diagnostics{Members: len(members), Issues: issues}, nil
}
