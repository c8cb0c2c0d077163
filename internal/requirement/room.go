package requirement

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/noah-isme/exam-surveillance-api/internal/models"
)

// DefaultRequirement applies to rooms without a constraint.
const DefaultRequirement = 1

// Source tells where a resolved room requirement came from.
type Source string

const (
	SourceConstraint Source = "constraint"
	SourceFamily     Source = "family"
	SourceDefault    Source = "default"
)

// familyPattern matches "<base> <single letter>" such as "Amphi B".
var familyPattern = regexp.MustCompile(`^(.*\S)\s+([A-Za-z])$`)

// Resolution is the requirement of a single room.
type Resolution struct {
	Room     string `json:"room"`
	Required int    `json:"required"`
	Source   Source `json:"source"`
	// Members lists the lettered sub-rooms summed for a family resolution.
	Members []string `json:"members,omitempty"`
}

// Defaulted reports whether no constraint matched the room.
func (r Resolution) Defaulted() bool {
	return r.Source == SourceDefault
}

type familyEntry struct {
	total   int
	members []string
}

// ConstraintTable is an immutable lookup of room constraints.
type ConstraintTable struct {
	exact    map[string]int
	compact  map[string]int
	families map[string]*familyEntry
	warnings []Warning
}

// NewConstraintTable indexes constraints by normalised label. When two rows share
// a normalised label the first one wins. Negative counts are clamped to 0.
func NewConstraintTable(constraints []models.RoomConstraint) *ConstraintTable {
	t := &ConstraintTable{
		exact:    make(map[string]int, len(constraints)),
		compact:  make(map[string]int, len(constraints)),
		families: make(map[string]*familyEntry),
	}
	for _, c := range constraints {
		key := NormalizeRoom(c.RoomLabel)
		if key == "" {
			continue
		}
		if _, dup := t.exact[key]; dup {
			continue
		}
		required, negative := clamp(c.RequiredCount)
		if negative {
			t.warnings = append(t.warnings, Warning{
				Code:    WarnNegativeInput,
				Room:    strings.TrimSpace(c.RoomLabel),
				Message: "negative room constraint clamped to 0",
			})
		}
		t.exact[key] = required
		if ck := compactRoom(key); ck != "" {
			if _, ok := t.compact[ck]; !ok {
				t.compact[ck] = required
			}
		}
		if base, ok := familyBase(key); ok {
			entry := t.families[base]
			if entry == nil {
				entry = &familyEntry{}
				t.families[base] = entry
			}
			entry.total += required
			entry.members = append(entry.members, strings.TrimSpace(c.RoomLabel))
		}
	}
	return t
}

// Len returns the number of distinct constraints.
func (t *ConstraintTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.exact)
}

// Warnings returns the problems found while indexing the constraints.
func (t *ConstraintTable) Warnings() []Warning {
	if t == nil {
		return nil
	}
	return append([]Warning(nil), t.warnings...)
}

// Resolve returns the requirement for one room. A family of lettered
// sub-rooms takes precedence over a direct match on the base name.
func (t *ConstraintTable) Resolve(room string) Resolution {
	label := strings.TrimSpace(room)
	res := Resolution{Room: label, Required: DefaultRequirement, Source: SourceDefault}
	if t == nil {
		return res
	}
	key := NormalizeRoom(label)
	if key == "" {
		return res
	}

	if entry, ok := t.families[key]; ok {
		res.Required = entry.total
		res.Source = SourceFamily
		res.Members = append([]string(nil), entry.members...)
		return res
	}
	if v, ok := t.exact[key]; ok {
		res.Required = v
		res.Source = SourceConstraint
		return res
	}
	if v, ok := t.compact[compactRoom(key)]; ok {
		res.Required = v
		res.Source = SourceConstraint
		return res
	}
	return res
}

// NormalizeRoom trims, lowercases and collapses internal whitespace.
func NormalizeRoom(label string) string {
	return strings.Join(strings.Fields(strings.ToLower(label)), " ")
}

func compactRoom(label string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, strings.ToLower(label))
}

func familyBase(normalized string) (string, bool) {
	if strings.Contains(normalized, ",") {
		return "", false
	}
	m := familyPattern.FindStringSubmatch(normalized)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// UnifiedRoom maps "<base> <letter>" to "<base>" and returns any other label
// trimmed. Comma separated labels are never unified.
func UnifiedRoom(label string) string {
	trimmed := strings.TrimSpace(label)
	if strings.Contains(trimmed, ",") {
		return trimmed
	}
	m := familyPattern.FindStringSubmatch(trimmed)
	if m == nil {
		return trimmed
	}
	return strings.TrimSpace(m[1])
}
