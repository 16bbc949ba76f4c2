package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/go-ports/silsilah/internal/blob"
	"github.com/go-ports/silsilah/internal/markdown"
	"github.com/go-ports/silsilah/internal/models"
)

// Format is a member file encoding.
type Format string

const (
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatMarkdown Format = "markdown"
)

// ErrExportOnly is returned when decoding a format that can only be written.
var ErrExportOnly = errors.New("format is export-only")

// snapshotPrefix is the blob key prefix for backups.
const snapshotPrefix = "snapshots/"

// snapshotLayout keeps keys sortable and unique within a second.
const snapshotLayout = "20060102T150405.000000000Z"

// ParseFormat maps a flag value to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("unknown format %q (want json, yaml or markdown)", s)
	}
}

// FormatForPath picks the format from the file extension, JSON by default.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".md", ".markdown":
		return FormatMarkdown
	default:
		return FormatJSON
	}
}

// DecodeMembers reads a list of member records in format f.
func DecodeMembers(r io.Reader, f Format) ([]models.MemberInput, error) {
	var out []models.MemberInput
	switch f {
	case FormatMarkdown:
		return nil, fmt.Errorf("DecodeMembers: %s: %w", f, ErrExportOnly)
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&out); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("DecodeMembers: %w", err)
		}
	default:
		if err := json.NewDecoder(r).Decode(&out); err != nil {
			return nil, fmt.Errorf("DecodeMembers: %w", err)
		}
	}
	return out, nil
}

// EncodeMembers writes members as a list of records in format f. Store
// metadata (doc ids and timestamps) is omitted so the output can be imported.
func EncodeMembers(w io.Writer, members []models.Member, f Format) error {
	inputs := make([]models.MemberInput, len(members))
	for i := range members {
		inputs[i] = members[i].ToInput()
		if inputs[i].SpouseIDs == nil {
			inputs[i].SpouseIDs = make([]string, 0)
		}
	}
	switch f {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(inputs); err != nil {
			return fmt.Errorf("EncodeMembers: %w", err)
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(inputs); err != nil {
			return fmt.Errorf("EncodeMembers: %w", err)
		}
		return nil
	}
}

// ---------------------------------------------------------------------------
// Import / Export
// ---------------------------------------------------------------------------

// Import adds each record in order, keeping provided ids and allocating the
// rest. It stops at the first failure; the result then holds the records
// added so far.
func (s *Service) Import(ctx context.Context, inputs []models.MemberInput) (*models.ImportResult, error) {
	res := &models.ImportResult{IDs: make([]string, 0, len(inputs))}
	for i := range inputs {
		in := inputs[i]
		saved, err := s.AddMember(ctx, &in)
		if err != nil {
			return res, fmt.Errorf("Import: record %d: %w", i+1, err)
		}
		res.Count++
		res.IDs = append(res.IDs, saved.ID)
	}
	s.logger.Debug("import finished", "count", res.Count)
	return res, nil
}

// ImportFrom decodes r in format f and imports the records.
func (s *Service) ImportFrom(ctx context.Context, r io.Reader, f Format) (*models.ImportResult, error) {
	inputs, err := DecodeMembers(r, f)
	if err != nil {
		return &models.ImportResult{IDs: make([]string, 0)}, fmt.Errorf("Import: %w", err)
	}
	return s.Import(ctx, inputs)
}

// Export writes the current snapshot to w and returns the number of members.
// FormatMarkdown writes the built forest as a register instead of records.
func (s *Service) Export(ctx context.Context, w io.Writer, f Format) (int, error) {
	if f == FormatMarkdown {
		forest, err := s.Tree(ctx)
		if err != nil {
			return 0, fmt.Errorf("Export: %w", err)
		}
		doc := markdown.Render(forest.Roots, forest.Report, forest.Members, s.tr, time.Now())
		if _, err := io.WriteString(w, doc); err != nil {
			return 0, fmt.Errorf("Export: %w", err)
		}
		return forest.Members, nil
	}
	members, err := s.ListMembers(ctx)
	if err != nil {
		return 0, fmt.Errorf("Export: %w", err)
	}
	if err := EncodeMembers(w, members, f); err != nil {
		return 0, fmt.Errorf("Export: %w", err)
	}
	return len(members), nil
}

// ---------------------------------------------------------------------------
// Backup / Restore
// ---------------------------------------------------------------------------

// Backup writes a JSON snapshot of every member to the backup store under
// snapshots/<UTC timestamp>.json.
func (s *Service) Backup(ctx context.Context) (*models.BackupResult, error) {
	b, err := s.backupStore(ctx)
	if err != nil {
		return nil, fmt.Errorf("Backup: open backup store: %w", err)
	}
	members, err := s.ListMembers(ctx)
	if err != nil {
		return nil, fmt.Errorf("Backup: %w", err)
	}

	var buf bytes.Buffer
	if err := EncodeMembers(&buf, members, FormatJSON); err != nil {
		return nil, fmt.Errorf("Backup: %w", err)
	}

	key := snapshotPrefix + time.Now().UTC().Format(snapshotLayout) + ".json"
	info, err := b.Put(ctx, key, &buf, blob.PutOptions{
		ContentType: "application/json",
		Metadata:    map[string]string{"members": strconv.Itoa(len(members))},
	})
	if err != nil {
		return nil, fmt.Errorf("Backup: %w", err)
	}
	s.logger.Debug("backup written", "key", info.Key, "driver", b.Driver(), "members", len(members))
	return &models.BackupResult{Key: info.Key, Members: len(members), Size: info.Size}, nil
}

// ListBackups returns the stored snapshots, newest first.
func (s *Service) ListBackups(ctx context.Context) ([]blob.Info, error) {
	b, err := s.backupStore(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListBackups: open backup store: %w", err)
	}
	infos, err := b.List(ctx, snapshotPrefix)
	if err != nil {
		return nil, fmt.Errorf("ListBackups: %w", err)
	}
	slices.SortFunc(infos, func(x, y blob.Info) int { return strings.Compare(y.Key, x.Key) })
	return infos, nil
}

// Restore imports the snapshot stored under key into an empty store. An empty
// key selects the newest snapshot. Restore refuses to run when members exist.
func (s *Service) Restore(ctx context.Context, key string) (*models.ImportResult, string, error) {
	n, err := s.store.Count(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("Restore: %w", err)
	}
	if n > 0 {
		return nil, "", fmt.Errorf("Restore: %w (%d members)", ErrStoreNotEmpty, n)
	}

	if key == "" {
		infos, err := s.ListBackups(ctx)
		if err != nil {
			return nil, "", fmt.Errorf("Restore: %w", err)
		}
		if len(infos) == 0 {
			return nil, "", fmt.Errorf("Restore: %w", blob.ErrNotFound)
		}
		key = infos[0].Key
	}

	b, err := s.backupStore(ctx)
	if err != nil {
		return nil, key, fmt.Errorf("Restore: open backup store: %w", err)
	}
	_, rc, err := b.Get(ctx, key)
	if err != nil {
		return nil, key, fmt.Errorf("Restore: %w", err)
	}
	defer rc.Close()

	res, err := s.ImportFrom(ctx, rc, FormatJSON)
	if err != nil {
		return res, key, fmt.Errorf("Restore: %w", err)
	}
	return res, key, nil
}
