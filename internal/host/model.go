// Package host declares the contract between the game host and penalty mods:
// the character object model the host exposes and the typed extension points
// it fires.
package host

// Skill is one skill level held by a character's job.
type Skill struct {
	ID    string
	Level float64
}

// Job is the skill set attached to a character.
type Job interface {
	// Skills lists every skill of the job. Order carries no meaning.
	Skills() []Skill
	// SkillLevel returns the current level of a skill, or 0 when the job
	// lacks it. Identifiers compare case-insensitively.
	SkillLevel(id string) float64
}

// Character is the host's view of one campaign character.
type Character interface {
	// ID is stable for the character within a campaign.
	ID() int
	// Job returns nil when the character has no job.
	Job() Job
	// IsPlayer reports whether a client controls the character.
	IsPlayer() bool
	// HasAffliction reports whether the character currently bears the
	// affliction with the given identifier.
	HasAffliction(id string) bool
}
