package penalty

import (
	"strings"

	"golang.org/x/text/cases"
)

// CharacterID identifies a character within a campaign.
type CharacterID int

// SkillID identifies a skill. Values produced by NormalizeSkillID are case
// folded so that "Helm" and "helm" share one table entry.
type SkillID string

// NormalizeSkillID trims and case folds a host skill identifier.
func NormalizeSkillID(raw string) SkillID {
	return SkillID(cases.Fold().String(strings.TrimSpace(raw)))
}

// String returns the identifier text.
func (id SkillID) String() string {
	return string(id)
}

// validAttributeName reports whether id can be written as an XML attribute
// name without escaping. Colons are excluded to keep names out of namespaces.
func validAttributeName(id SkillID) bool {
	if id == "" {
		return false
	}
	for i, r := range string(id) {
		switch {
		case r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
		case i > 0 && (r == '-' || r == '.' || (r >= '0' && r <= '9')):
		default:
			return false
		}
	}
	return true
}

// storableSkill reports whether id can be written as a skill attribute of a
// character element.
func storableSkill(id SkillID) bool {
	return id != identifierAttrName && validAttributeName(id)
}
