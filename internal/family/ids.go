package family

import (
	"regexp"
	"strconv"
)

// DefaultIDPrefix is used when no existing id carries a numeric suffix.
const DefaultIDPrefix = "M"

var idPattern = regexp.MustCompile(`^([^0-9]*)([0-9]+)$`)

// NextMemberID returns the next unused id in the existing numbering scheme:
// the prefix of the id with the largest numeric suffix, followed by that
// suffix plus one. Ids without a trailing number are ignored.
//
//	NextMemberID([]string{"M3", "M17", "M9"}) == "M18"
func NextMemberID(ids []string) string {
	prefix := DefaultIDPrefix
	maxN := uint64(0)
	found := false

	for _, id := range ids {
		m := idPattern.FindStringSubmatch(id)
		if m == nil {
			continue
		}
		n, err := strconv.ParseUint(m[2], 10, 63)
		if err != nil {
			continue
		}
		if !found || n > maxN {
			maxN, prefix, found = n, m[1], true
		}
	}
	return prefix + strconv.FormatUint(maxN+1, 10)
}
