package stationdb

import (
	"aprsd/internal/models"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const rawPatternPrefix = "REG:"

type searchPattern struct {
	ident *regexp.Regexp
	descr *regexp.Regexp
}

func (p *searchPattern) match(pt models.AprsPoint) bool {
	return p.ident.MatchString(pt.Ident()) || p.descr.MatchString(pt.Descr())
}

// compilePattern turns a search expression into ident and description
// matchers. "REG:" introduces a raw regular expression; otherwise '*' is a
// wildcard and everything else is literal.
func compilePattern(text string) (*searchPattern, error) {
	var srch string
	if rest, ok := strings.CutPrefix(text, rawPatternPrefix); ok {
		srch = "(?i)" + rest
	} else {
		parts := strings.Split(strings.ToUpper(text), "*")
		for i, part := range parts {
			parts[i] = regexp.QuoteMeta(part)
		}
		srch = "(?i)" + strings.Join(parts, `(\S*)`)
	}

	ident, err := regexp.Compile(`^(?:` + srch + `)$`)
	if err != nil {
		return nil, fmt.Errorf("invalid search pattern %q: %w", text, err)
	}
	descr, err := regexp.Compile(`^(.*\s+)?\(?(` + srch + `)\)?,?(\s+.*)?$`)
	if err != nil {
		return nil, fmt.Errorf("invalid search pattern %q: %w", text, err)
	}
	return &searchPattern{ident: ident, descr: descr}, nil
}

func (s *Store) pattern(text string) (*searchPattern, error) {
	if p, ok := s.patterns.Get(text); ok {
		return p, nil
	}
	p, err := compilePattern(text)
	if err != nil {
		return nil, err
	}
	s.patterns.Add(text, p)
	return p, nil
}

// SearchPrefix returns the points whose ident starts with text, ignoring
// case. Idents keep their case, so the index is walked from both the upper
// and the lower case form of the first character.
func (s *Store) SearchPrefix(text string) []models.AprsPoint {
	if text == "" {
		return s.all()
	}
	text = strings.ToUpper(text)
	first, _ := utf8.DecodeRuneInString(text)
	starts := []string{string(first)}
	if lower := string(unicode.ToLower(first)); lower != starts[0] {
		starts = append(starts, lower)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.AprsPoint
	for _, start := range starts {
		s.items.AscendGreaterOrEqual(entry{id: start}, func(e entry) bool {
			if !strings.HasPrefix(e.id, start) {
				return false
			}
			if strings.HasPrefix(strings.ToUpper(e.id), text) {
				out = append(out, e.p)
			}
			return true
		})
	}
	return out
}

// SearchPattern returns the points whose ident matches text, or whose
// description contains it as a word.
func (s *Store) SearchPattern(text string) ([]models.AprsPoint, error) {
	p, err := s.pattern(text)
	if err != nil {
		return nil, err
	}
	var out []models.AprsPoint
	for _, pt := range s.all() {
		if p.match(pt) {
			out = append(out, pt)
		}
	}
	return out, nil
}

// SearchBox returns the points with a position inside the box. With a
// missing corner every point is returned.
func (s *Store) SearchBox(uleft, lright *models.UTMRef) []models.AprsPoint {
	points := s.all()
	if uleft == nil || lright == nil {
		return points
	}
	out := points[:0]
	for _, p := range points {
		if p.IsInside(*uleft, *lright) {
			out = append(out, p)
		}
	}
	return out
}
