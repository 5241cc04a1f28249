// Package penalty tracks the skill levels characters held before dying and
// boosts later skill gains until those levels are regained.
package penalty

import (
	"github.com/louisbranch/respawn-penalty/internal/host"
)

// Tracker owns the penalty table for one campaign session. It is driven from
// the host's simulation thread and is not safe for concurrent use.
type Tracker struct {
	policy Policy
	table  Table
}

// NewTracker returns an empty tracker using policy.
func NewTracker(policy Policy) (*Tracker, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	return &Tracker{policy: policy, table: Table{}}, nil
}

// Policy returns the tracker's tuning.
func (t *Tracker) Policy() Policy {
	return t.policy
}

// Len returns the number of tracked characters.
func (t *Tracker) Len() int {
	return len(t.table)
}

// Target returns the recovery target stored for a character's skill.
func (t *Tracker) Target(character CharacterID, skill string) (float64, bool) {
	record, ok := t.table[character]
	if !ok {
		return 0, false
	}
	target, ok := record[NormalizeSkillID(skill)]
	return target, ok
}

// Record returns a copy of the record stored for a character.
func (t *Tracker) Record(character CharacterID) (Record, bool) {
	record, ok := t.table[character]
	if !ok {
		return nil, false
	}
	return record.Clone(), true
}

// Snapshot returns a deep copy of the whole table.
func (t *Tracker) Snapshot() Table {
	return t.table.Clone()
}

// Merge replaces the records of every character present in loaded. Characters
// with empty records are skipped. It returns the number of records applied.
func (t *Tracker) Merge(loaded Table) int {
	applied := 0
	for id, record := range loaded {
		if len(record) == 0 {
			continue
		}
		t.table[id] = record.Clone()
		applied++
	}
	return applied
}

// RecordDeath snapshots the character's skills as its new recovery targets.
//
// When the character already has a record, each skill's previous target is
// lowered by the policy decay (never below zero) and kept only when it is
// below the current level. Targets therefore never exceed the levels the
// character died with. Skills whose identifiers cannot be written to the
// penalty document are not recorded. Characters without a job, or without a
// storable skill, are left untouched. It reports whether a record was written.
func (t *Tracker) RecordDeath(character host.Character) bool {
	if character == nil {
		return false
	}
	job := character.Job()
	if job == nil {
		return false
	}

	snapshot := Record{}
	for _, skill := range job.Skills() {
		id := NormalizeSkillID(skill.ID)
		if !storableSkill(id) {
			continue
		}
		snapshot[id] = skill.Level
	}
	if len(snapshot) == 0 {
		return false
	}

	id := CharacterID(character.ID())
	if previous, ok := t.table[id]; ok {
		for skill, level := range snapshot {
			prior, ok := previous[skill]
			if !ok {
				continue
			}
			decayed := max(prior-t.policy.Decay, 0)
			if decayed < level {
				snapshot[skill] = decayed
			}
		}
	}

	t.table[id] = snapshot
	return true
}

// Boost describes the outcome of a skill gain evaluation.
type Boost struct {
	// Increase is the gain to apply.
	Increase float64
	// Applied reports whether Increase differs from the proposed gain
	// because of a recovery boost.
	Applied bool
	// Target and Current are set whenever a record for the skill exists.
	Target  float64
	Current float64
	// Gap is the shortfall left after the unmodified gain. Set when Applied.
	Gap float64
}

// Evaluate computes the boost for a proposed skill gain without changing the
// tracker.
func (t *Tracker) Evaluate(character host.Character, skill string, increase float64, gainedFromAbility bool) Boost {
	result := Boost{Increase: increase}
	if gainedFromAbility || character == nil {
		return result
	}
	job := character.Job()
	if job == nil || !character.IsPlayer() {
		return result
	}
	if t.policy.DisablingAffliction != "" && character.HasAffliction(t.policy.DisablingAffliction) {
		return result
	}
	record, ok := t.table[CharacterID(character.ID())]
	if !ok {
		return result
	}
	target, ok := record[NormalizeSkillID(skill)]
	if !ok {
		return result
	}

	current := job.SkillLevel(skill)
	result.Target = target
	result.Current = current
	if current >= target {
		return result
	}

	gap := target - (current + increase)
	if gap > 0 {
		result.Increase = increase + gap*(t.policy.Multiplier-1)
	} else {
		result.Increase = increase * t.policy.Multiplier
	}
	result.Gap = gap
	result.Applied = result.Increase != increase
	return result
}

// ComputeBoostedIncrease returns the gain to apply for a proposed skill
// increase.
func (t *Tracker) ComputeBoostedIncrease(character host.Character, skill string, increase float64, gainedFromAbility bool) float64 {
	return t.Evaluate(character, skill, increase, gainedFromAbility).Increase
}
