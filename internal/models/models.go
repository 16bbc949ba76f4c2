// Package models defines the core data types for the family record keeper.
package models

import (
	"strings"
	"time"
)

// Gender is the recorded gender of a member.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// ParseGender normalises s to a Gender. Anything other than "female"
// (case-insensitive) is treated as male, matching the default for absent values.
func ParseGender(s string) Gender {
	if strings.EqualFold(strings.TrimSpace(s), string(GenderFemale)) {
		return GenderFemale
	}
	return GenderMale
}

// Member is a single flat family record.
type Member struct {
	ID         string   `json:"id" yaml:"id"`
	Name       string   `json:"name" yaml:"name"`
	Gender     Gender   `json:"gender" yaml:"gender"`
	BirthYear  *int     `json:"birth_year" yaml:"birth_year"`
	DeathYear  *int     `json:"death_year" yaml:"death_year"`
	IsDeceased bool     `json:"is_deceased" yaml:"is_deceased"`
	FatherID   string   `json:"father_id,omitempty" yaml:"father_id,omitempty"`
	MotherID   string   `json:"mother_id,omitempty" yaml:"mother_id,omitempty"`
	SpouseIDs  []string `json:"spouse_ids" yaml:"spouse_ids"`

	// Store metadata; ignored by tree building.
	DocID     string    `json:"doc_id,omitempty" yaml:"-"`
	CreatedAt time.Time `json:"created_at,omitzero" yaml:"-"`
	UpdatedAt time.Time `json:"updated_at,omitzero" yaml:"-"`
}

// HasParents reports whether either parent id is declared.
func (m *Member) HasParents() bool {
	return m.FatherID != "" || m.MotherID != ""
}

// TreeNode is a member with its nested children. Nodes are rebuilt on every
// tree build and never shared between forests.
type TreeNode struct {
	Member
	Children []*TreeNode `json:"children"`
}

// NewTreeNode returns a node carrying a copy of m and an empty child list.
func NewTreeNode(m *Member) *TreeNode {
	clone := *m
	if m.SpouseIDs != nil {
		clone.SpouseIDs = append([]string(nil), m.SpouseIDs...)
	}
	return &TreeNode{Member: clone, Children: make([]*TreeNode, 0)}
}

// MemberInput is the caller-supplied data for a new member.
type MemberInput struct {
	ID         string   `json:"id" yaml:"id"` // optional; allocated when empty
	Name       string   `json:"name" yaml:"name"`
	Gender     string   `json:"gender" yaml:"gender"` // optional; default male
	BirthYear  *int     `json:"birth_year" yaml:"birth_year"`
	DeathYear  *int     `json:"death_year" yaml:"death_year"`
	IsDeceased bool     `json:"is_deceased" yaml:"is_deceased"`
	FatherID   string   `json:"father_id" yaml:"father_id"`
	MotherID   string   `json:"mother_id" yaml:"mother_id"`
	SpouseIDs  []string `json:"spouse_ids" yaml:"spouse_ids"`
}

// FromInput constructs a Member from in using the already-allocated id and
// stamps creation/update times.
func FromInput(in *MemberInput, id string) *Member {
	now := time.Now().UTC()
	spouses := CleanIDs(in.SpouseIDs)
	return &Member{
		ID:         id,
		Name:       in.Name,
		Gender:     ParseGender(in.Gender),
		BirthYear:  in.BirthYear,
		DeathYear:  in.DeathYear,
		IsDeceased: in.IsDeceased,
		FatherID:   strings.TrimSpace(in.FatherID),
		MotherID:   strings.TrimSpace(in.MotherID),
		SpouseIDs:  spouses,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// ToInput converts m back into an input record, keeping its id. Used for
// export and backup so a snapshot can be re-imported verbatim.
func (m *Member) ToInput() MemberInput {
	return MemberInput{
		ID:         m.ID,
		Name:       m.Name,
		Gender:     string(m.Gender),
		BirthYear:  m.BirthYear,
		DeathYear:  m.DeathYear,
		IsDeceased: m.IsDeceased,
		FatherID:   m.FatherID,
		MotherID:   m.MotherID,
		SpouseIDs:  m.SpouseIDs,
	}
}

// MemberPatch carries a partial update. Nil fields are left unchanged.
// ClearBirthYear / ClearDeathYear null out the stored year.
type MemberPatch struct {
	ID             *string   `json:"id,omitempty"`
	Name           *string   `json:"name,omitempty"`
	Gender         *string   `json:"gender,omitempty"`
	BirthYear      *int      `json:"birth_year,omitempty"`
	DeathYear      *int      `json:"death_year,omitempty"`
	ClearBirthYear bool      `json:"clear_birth_year,omitempty"`
	ClearDeathYear bool      `json:"clear_death_year,omitempty"`
	IsDeceased     *bool     `json:"is_deceased,omitempty"`
	FatherID       *string   `json:"father_id,omitempty"`
	MotherID       *string   `json:"mother_id,omitempty"`
	SpouseIDs      *[]string `json:"spouse_ids,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p *MemberPatch) Empty() bool {
	return p.ID == nil && p.Name == nil && p.Gender == nil &&
		p.BirthYear == nil && p.DeathYear == nil &&
		!p.ClearBirthYear && !p.ClearDeathYear &&
		p.IsDeceased == nil && p.FatherID == nil && p.MotherID == nil &&
		p.SpouseIDs == nil
}

// SaveResult is returned from Service.AddMember.
type SaveResult struct {
	ID    string `json:"id"`
	DocID string `json:"doc_id"`
}

// ImportResult is returned from Service.Import and Service.Restore.
type ImportResult struct {
	Count int      `json:"count"`
	IDs   []string `json:"ids"`
}

// BackupResult is returned from Service.Backup.
type BackupResult struct {
	Key     string `json:"key"`
	Members int    `json:"members"`
	Size    int64  `json:"size_bytes"`
}

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

// CleanIDs trims each id and drops empty entries. The result is never nil.
func CleanIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	return out
}

// Year returns a pointer to y; convenience for literals and tests.
func Year(y int) *int { return &y }
