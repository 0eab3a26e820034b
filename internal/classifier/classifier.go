// Package classifier tags free-text event descriptions with a canonical family.
package classifier

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"fx-impact-lab/internal/domain"
)

// Errors returned when building a Classifier.
var (
	ErrEmptyTable      = errors.New("family table is empty")
	ErrInvalidPattern  = errors.New("invalid family pattern")
	ErrDuplicateFamily = errors.New("duplicate family in table")
)

type rule struct {
	info domain.FamilyInfo
	re   *regexp.Regexp
}

// Classifier evaluates an ordered (pattern, family) table, first match wins.
// Safe for concurrent use after construction.
type Classifier struct {
	rules    []rule
	byFamily map[domain.Family]int
	fallback domain.Family
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithFallback forces unmatched text into the given family.
func WithFallback(f domain.Family) Option {
	return func(c *Classifier) {
		c.fallback = f
	}
}

// New compiles the table. Patterns are matched case-insensitively.
// Fails on an empty table, a pattern that does not compile, or a repeated family.
func New(table []domain.FamilyInfo, opts ...Option) (*Classifier, error) {
	if len(table) == 0 {
		return nil, ErrEmptyTable
	}

	c := &Classifier{
		rules:    make([]rule, 0, len(table)),
		byFamily: make(map[domain.Family]int, len(table)),
	}

	for _, info := range table {
		if !info.Family.IsKnown() {
			return nil, fmt.Errorf("%w: entry with empty family", ErrInvalidPattern)
		}
		if _, dup := c.byFamily[info.Family]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateFamily, info.Family)
		}
		if strings.TrimSpace(info.Pattern) == "" {
			return nil, fmt.Errorf("%w: %s has empty pattern", ErrInvalidPattern, info.Family)
		}
		re, err := regexp.Compile("(?i)" + info.Pattern)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidPattern, info.Family, err)
		}
		c.byFamily[info.Family] = len(c.rules)
		c.rules = append(c.rules, rule{info: info, re: re})
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// MustDefault returns a classifier over DefaultFamilies.
// Panics only if the built-in table is broken.
func MustDefault(opts ...Option) *Classifier {
	c, err := New(DefaultFamilies, opts...)
	if err != nil {
		panic(err)
	}
	return c
}

// Classify returns the first family whose pattern matches the joined fields.
// Fields are joined with newlines so a pattern cannot straddle two fields.
// Returns (FamilyUnknown, false) when nothing matches and no fallback is set.
func (c *Classifier) Classify(fields ...string) (domain.Family, bool) {
	text := strings.Join(fields, "\n")
	if strings.TrimSpace(text) != "" {
		for _, r := range c.rules {
			if r.re.MatchString(text) {
				return r.info.Family, true
			}
		}
	}

	if c.fallback.IsKnown() {
		return c.fallback, true
	}
	return domain.FamilyUnknown, false
}

// ClassifyNullable is Classify over optional fields; nil is treated as "".
func (c *Classifier) ClassifyNullable(fields ...*string) (domain.Family, bool) {
	text := make([]string, len(fields))
	for i, f := range fields {
		if f != nil {
			text[i] = *f
		}
	}
	return c.Classify(text...)
}

// ClassifyEvent keeps an already-set family, otherwise classifies the event text.
func (c *Classifier) ClassifyEvent(e *domain.Event) (domain.Family, bool) {
	if e == nil {
		return c.Classify()
	}
	if e.Family.IsKnown() {
		return e.Family, true
	}
	return c.Classify(e.ClassificationText()...)
}

// Info returns the table entry of a family.
func (c *Classifier) Info(f domain.Family) (domain.FamilyInfo, bool) {
	idx, ok := c.byFamily[f]
	if !ok {
		return domain.FamilyInfo{}, false
	}
	return c.rules[idx].info, true
}

// Importance returns the table importance of a family, 0 when unknown.
func (c *Classifier) Importance(f domain.Family) int {
	info, ok := c.Info(f)
	if !ok {
		return 0
	}
	return info.Importance
}

// Families returns the table in evaluation order.
func (c *Classifier) Families() []domain.FamilyInfo {
	out := make([]domain.FamilyInfo, len(c.rules))
	for i, r := range c.rules {
		out[i] = r.info
	}
	return out
}
