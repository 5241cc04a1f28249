package host

import "context"

// SkillIncrease is fired before the host applies a skill gain.
type SkillIncrease struct {
	Character Character
	Skill     string
	// Increase is the proposed gain. Handlers return the value to apply.
	Increase float64
	// GainedFromAbility marks one-time grants from talents or abilities, as
	// opposed to organic skill use.
	GainedFromAbility bool
}

// SkillReduction is fired when the host is about to reduce a respawning
// character's skills. Observers see the levels the character died with.
type SkillReduction struct {
	Character Character
}

// SavePlayers is fired before the campaign persists its players.
type SavePlayers struct {
	// SavePath is the campaign save file path.
	SavePath string
}

// RoundStart is fired when a round begins.
type RoundStart struct {
	SavePath string
}

// SkillIncreaseHandler returns the adjusted increase for an event.
type SkillIncreaseHandler func(SkillIncrease) float64

// SkillReductionHandler observes a respawn skill reduction.
type SkillReductionHandler func(SkillReduction)

// SavePlayersHandler runs at the campaign save point.
type SavePlayersHandler func(context.Context, SavePlayers) error

// RoundStartHandler runs when a round begins.
type RoundStartHandler func(context.Context, RoundStart) error
