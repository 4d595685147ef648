package slug

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/mind-engage/courseware/internal/db"
)

const maxLen = 100

var (
	reNonAlnum = regexp.MustCompile(`[^a-z0-9]+`)
	reHyphen   = regexp.MustCompile(`-+`)
)

// Make turns free text into a [a-z0-9-] slug with diacritics removed.
// Empty input yields "item".
func Make(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))

	var buf []rune
	for _, r := range norm.NFD.String(s) {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		buf = append(buf, r)
	}
	s = reNonAlnum.ReplaceAllString(string(buf), "-")
	s = reHyphen.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")

	if utf8.RuneCountInString(s) > maxLen {
		s = strings.Trim(string([]rune(s)[:maxLen]), "-")
	}
	if s == "" {
		s = "item"
	}
	return s
}

// Unique returns base if no row of table uses it as slug (ignoring excludeID),
// otherwise base suffixed with the current unix milliseconds.
func Unique(ctx context.Context, q db.Querier, table, base, excludeID string, now time.Time) (string, error) {
	var n int
	err := q.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE slug=$1 AND id<>$2`, table),
		base, excludeID,
	).Scan(&n)
	if err != nil {
		return "", fmt.Errorf("check %s slug: %w", table, err)
	}
	if n == 0 {
		return base, nil
	}
	return fmt.Sprintf("%s-%d", base, now.UnixMilli()), nil
}
