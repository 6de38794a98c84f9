package post

import (
	"strings"

	"github.com/samber/lo"
)

// ParseTagNames splits a comma separated tag string, trims every piece, drops the
// empty ones and removes duplicates while keeping first-seen order.
func ParseTagNames(raw string) []string {
	names := lo.FilterMap(strings.Split(raw, ","), func(s string, _ int) (string, bool) {
		s = strings.TrimSpace(s)
		return s, s != ""
	})
	return lo.Uniq(names)
}
