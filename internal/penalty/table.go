package penalty

import (
	"maps"
	"slices"
)

// Record maps each skill to the level a character is recovering toward.
type Record map[SkillID]float64

// Table maps characters to their recovery records. A character present in a
// Table always has a non-empty record.
type Table map[CharacterID]Record

// Clone returns a deep copy of the record.
func (r Record) Clone() Record {
	return maps.Clone(r)
}

// Skills returns the record's skills in ascending order.
func (r Record) Skills() []SkillID {
	return slices.Sorted(maps.Keys(r))
}

// Clone returns a deep copy of the table.
func (t Table) Clone() Table {
	out := make(Table, len(t))
	for id, record := range t {
		out[id] = record.Clone()
	}
	return out
}

// Characters returns the table's characters in ascending order.
func (t Table) Characters() []CharacterID {
	return slices.Sorted(maps.Keys(t))
}
