package identity

import (
	"regexp"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/mesdirectives/access-api/internal/model"
)

// Matcher cross-checks a claimed identity against stored profile fields.
// Lenient mode tolerates compound and partially-entered names; strict
// mode requires exact equality after normalization.
type Matcher struct {
	strict bool
}

func NewMatcher(strict bool) *Matcher {
	return &Matcher{strict: strict}
}

var (
	stripper    = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	nonAlnumRe  = regexp.MustCompile(`[^a-z0-9 ]+`)
	whitespace  = regexp.MustCompile(`\s+`)
	bareDateRe  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	dateLayouts = []string{
		"2006-01-02",
		time.RFC3339,
		"2006-01-02 15:04:05",
		"02/01/2006",
	}
)

// NormalizeText lowercases, strips diacritics, drops everything outside
// [a-z0-9 ] and collapses whitespace runs.
func NormalizeText(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if out, _, err := transform.String(stripper, s); err == nil {
		s = out
	}
	s = nonAlnumRe.ReplaceAllString(s, " ")
	s = whitespace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// NamesMatch compares one claimed name field against the stored one.
// In lenient mode a token-level containment check tolerates hyphenated
// and compound names; tokens of length 1 are ignored to limit false
// accepts on initials.
func (m *Matcher) NamesMatch(claimed, stored string) bool {
	c := NormalizeText(claimed)
	s := NormalizeText(stored)
	if c == "" || s == "" {
		return false
	}
	if c == s {
		return true
	}
	if m.strict {
		return false
	}

	claimedTokens := tokens(c)
	storedTokens := tokens(s)
	for _, ct := range claimedTokens {
		for _, st := range storedTokens {
			if ct == st || strings.Contains(ct, st) || strings.Contains(st, ct) {
				return true
			}
		}
	}
	return false
}

func tokens(s string) []string {
	var out []string
	for _, t := range strings.Fields(s) {
		if len(t) > 1 {
			out = append(out, t)
		}
	}
	return out
}

// NormalizeDate reduces the many historical birth-date formats to
// YYYY-MM-DD. An unparseable value yields the empty string, which never
// matches anything.
func NormalizeDate(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}

	if idx := strings.Index(value, "T"); idx > 0 {
		datePart := value[:idx]
		if bareDateRe.MatchString(datePart) {
			return datePart
		}
	}
	if bareDateRe.MatchString(value) {
		return value
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return ""
}

// Matches requires first name, last name and birth date to all hold.
// No partial credit.
func (m *Matcher) Matches(claimed, stored model.ClaimedIdentity) bool {
	if !m.NamesMatch(claimed.FirstName, stored.FirstName) {
		return false
	}
	if !m.NamesMatch(claimed.LastName, stored.LastName) {
		return false
	}

	claimedDate := NormalizeDate(claimed.BirthDate)
	storedDate := NormalizeDate(stored.BirthDate)
	if claimedDate == "" || storedDate == "" {
		return false
	}
	return claimedDate == storedDate
}
