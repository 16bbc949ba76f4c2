package family

import (
	"errors"
	"fmt"

	"github.com/go-ports/silsilah/internal/models"
)

// ErrParentCycle is returned when a parent chain loops back on itself.
var ErrParentCycle = errors.New("parent cycle")

// GenerationLevel returns how many ancestors separate member from the top of
// its parent chain: 0 when it declares no parent or no declared parent is in
// all, otherwise one more than the level of that parent.
//
// The parent looked up at each step is the first record in all whose id
// equals either the father or the mother id, so the mother's line is followed
// when she appears first. If the chain revisits a member, the level reached so
// far is returned together with an error wrapping ErrParentCycle.
func GenerationLevel(member *models.Member, all []models.Member) (int, error) {
	visited := map[string]bool{member.ID: true}
	level := 0

	for cur := member; cur.HasParents(); {
		parent := findParent(cur, all)
		if parent == nil {
			return level, nil
		}
		if visited[parent.ID] {
			return level, fmt.Errorf("%w: %s reached again from %s", ErrParentCycle, parent.ID, cur.ID)
		}
		visited[parent.ID] = true
		level++
		cur = parent
	}
	return level, nil
}

func findParent(m *models.Member, all []models.Member) *models.Member {
	for i := range all {
		id := all[i].ID
		if id == "" {
			continue
		}
		if id == m.FatherID || id == m.MotherID {
			return &all[i]
		}
	}
	return nil
}

// FindMember returns the first member of all with the given id.
func FindMember(all []models.Member, id string) (*models.Member, bool) {
	for i := range all {
		if all[i].ID == id {
			return &all[i], true
		}
	}
	return nil, false
}
