package di

import (
	"strings"
	"unicode"
)

// DefaultProfile is the profile used when no default profile is configured.
const DefaultProfile = "default"

// ProfileSet contains the profiles used to decide
// which definitions are eligible in a Container.
// If Active is empty, Default is used instead.
type ProfileSet struct {
	Active  []string `yaml:"active" json:"active"`
	Default []string `yaml:"default" json:"default"`
}

// NewProfileSet creates a validated ProfileSet.
// If defaults is nil, the default profiles are [DefaultProfile].
func NewProfileSet(active, defaults []string) (ProfileSet, error) {
	if defaults == nil {
		defaults = []string{DefaultProfile}
	}

	ps := ProfileSet{
		Active:  append([]string{}, active...),
		Default: append([]string{}, defaults...),
	}

	return ps, ps.Validate()
}

// Validate returns an InvalidProfileError if one of the profiles is blank.
// An empty list is valid.
func (ps ProfileSet) Validate() error {
	for _, list := range [][]string{ps.Active, ps.Default} {
		for _, p := range list {
			if strings.TrimSpace(p) == "" {
				return &InvalidProfileError{Expression: p}
			}
		}
	}
	return nil
}

// Effective returns the profiles used to evaluate expressions:
// Active if it is not empty, Default otherwise.
func (ps ProfileSet) Effective() []string {
	if len(ps.Active) > 0 {
		return ps.Active
	}
	return ps.Default
}

// IsActive returns true if the profile is one of the effective profiles.
func (ps ProfileSet) IsActive(profile string) bool {
	for _, p := range ps.Effective() {
		if strings.TrimSpace(p) == profile {
			return true
		}
	}
	return false
}

// Accepts returns true if every expression matches the effective profiles.
// It returns an InvalidProfileError if a profile in the set or in the expressions is blank.
func (ps ProfileSet) Accepts(expressions ...string) (bool, error) {
	if err := ps.Validate(); err != nil {
		return false, err
	}

	accepted := true

	for _, expr := range expressions {
		ok, err := ps.match(expr)
		if err != nil {
			return false, err
		}
		accepted = accepted && ok
	}

	return accepted, nil
}

// match evaluates one expression.
// Tokens separated by commas or spaces are alternatives,
// a token starting with `!` is a negation.
func (ps ProfileSet) match(expr string) (bool, error) {
	tokens, err := parseProfileExpression(expr)
	if err != nil {
		return false, err
	}

	for _, token := range tokens {
		if strings.HasPrefix(token, "!") {
			if !ps.IsActive(token[1:]) {
				return true, nil
			}
			continue
		}
		if ps.IsActive(token) {
			return true, nil
		}
	}

	return false, nil
}

func parseProfileExpression(expr string) ([]string, error) {
	fields := strings.FieldsFunc(expr, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})

	if len(fields) == 0 {
		return nil, &InvalidProfileError{Expression: expr}
	}

	// FieldsFunc drops empty fields, so "a,,b" has to be checked separately
	for _, part := range strings.Split(expr, ",") {
		if strings.TrimSpace(part) == "" {
			return nil, &InvalidProfileError{Expression: expr}
		}
	}

	for _, f := range fields {
		if f == "!" || strings.HasPrefix(f, "!!") {
			return nil, &InvalidProfileError{Expression: expr}
		}
	}

	return fields, nil
}

// ProfileGroup is a group of definitions sharing the same profile expression.
// Groups can be nested: a definition must match the expressions of all its groups.
type ProfileGroup struct {
	Profiles    string
	Definitions []Definition
	Groups      []ProfileGroup
}

// Flatten returns the definitions of the group and its sub-groups,
// with the group expressions appended to their Profiles.
func (g ProfileGroup) Flatten() []Definition {
	defs := make([]Definition, 0, len(g.Definitions))

	for _, def := range g.Definitions {
		defs = append(defs, g.restrict(def.copy()))
	}

	for _, sub := range g.Groups {
		for _, def := range sub.Flatten() {
			defs = append(defs, g.restrict(def))
		}
	}

	return defs
}

func (g ProfileGroup) restrict(def Definition) Definition {
	if strings.TrimSpace(g.Profiles) != "" {
		def.Profiles = append(def.Profiles, g.Profiles)
	}
	return def
}
