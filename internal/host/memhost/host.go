// Package memhost is an in-memory game host. It models characters, jobs and
// afflictions and fires the host extension points the way a live campaign
// does, so mods can be exercised without the game.
package memhost

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/louisbranch/respawn-penalty/internal/host"
	"golang.org/x/text/cases"
)

// Host defaults.
const (
	MaxSkillLevel    = 100
	DefaultSkillLoss = 0.5
)

// Options configures a Host.
type Options struct {
	// SavePath is reported to save and round start hooks.
	SavePath string
	// SkillLoss is the fraction of each skill removed on respawn. Zero
	// selects DefaultSkillLoss; use a negative value for no loss.
	SkillLoss float64
}

// Host owns characters and fires hooks for their lifecycle events.
type Host struct {
	hooks      *host.Hooks
	savePath   string
	skillLoss  float64
	characters map[int]*Character
	round      int
}

// New creates a host that fires hooks.
func New(hooks *host.Hooks, opts Options) (*Host, error) {
	if hooks == nil {
		return nil, fmt.Errorf("hooks are required")
	}
	loss := opts.SkillLoss
	switch {
	case loss == 0:
		loss = DefaultSkillLoss
	case loss < 0:
		loss = 0
	case loss > 1:
		return nil, fmt.Errorf("skill loss %v must be at most 1", loss)
	}
	return &Host{
		hooks:      hooks,
		savePath:   opts.SavePath,
		skillLoss:  loss,
		characters: map[int]*Character{},
	}, nil
}

// CharacterSpec describes a character to add.
type CharacterSpec struct {
	ID   int
	Name string
	// Bot marks characters not controlled by a client.
	Bot bool
	// Skills seeds the job. A nil map creates a character without a job.
	Skills      map[string]float64
	Afflictions []string
}

// AddCharacter registers a character. IDs must be unique.
func (h *Host) AddCharacter(spec CharacterSpec) (*Character, error) {
	if _, exists := h.characters[spec.ID]; exists {
		return nil, fmt.Errorf("character %d already exists", spec.ID)
	}
	character := &Character{
		id:          spec.ID,
		name:        spec.Name,
		player:      !spec.Bot,
		afflictions: map[string]struct{}{},
	}
	if spec.Skills != nil {
		job := &Job{levels: map[string]float64{}}
		for id, level := range spec.Skills {
			job.set(id, level)
		}
		character.job = job
	}
	for _, id := range spec.Afflictions {
		character.AddAffliction(id)
	}
	h.characters[spec.ID] = character
	return character, nil
}

// Character returns a registered character.
func (h *Host) Character(id int) (*Character, bool) {
	character, ok := h.characters[id]
	return character, ok
}

// CharacterIDs returns every registered id in ascending order.
func (h *Host) CharacterIDs() []int {
	return slices.Sorted(maps.Keys(h.characters))
}

// Round returns the number of rounds started.
func (h *Host) Round() int {
	return h.round
}

// SavePath returns the campaign save path.
func (h *Host) SavePath() string {
	return h.savePath
}

// IncreaseSkill fires the skill increase hook and applies the returned gain.
// It returns the gain actually applied after clamping to MaxSkillLevel.
func (h *Host) IncreaseSkill(id int, skill string, amount float64, fromAbility bool) (float64, error) {
	character, job, err := h.jobOf(id)
	if err != nil {
		return 0, err
	}
	if amount <= 0 || character.job == nil {
		return 0, nil
	}
	increase := h.hooks.FireSkillIncrease(host.SkillIncrease{
		Character:         character,
		Skill:             skill,
		Increase:          amount,
		GainedFromAbility: fromAbility,
	})
	before := job.SkillLevel(skill)
	after := min(before+max(increase, 0), MaxSkillLevel)
	job.set(skill, after)
	return after - before, nil
}

// Respawn fires the skill reduction hook and then removes the configured
// fraction of every skill.
func (h *Host) Respawn(id int) error {
	character, ok := h.characters[id]
	if !ok {
		return fmt.Errorf("character %d not found", id)
	}
	h.hooks.FireSkillReduction(host.SkillReduction{Character: character})
	if character.job == nil {
		return nil
	}
	for key, level := range character.job.levels {
		character.job.levels[key] = level * (1 - h.skillLoss)
	}
	return nil
}

// SavePlayers fires the save hook. It returns the number of failed handlers.
func (h *Host) SavePlayers(ctx context.Context) int {
	return h.hooks.FireSavePlayers(ctx, host.SavePlayers{SavePath: h.savePath})
}

// StartRound fires the round start hook. It returns the number of failed
// handlers.
func (h *Host) StartRound(ctx context.Context) int {
	h.round++
	return h.hooks.FireRoundStart(ctx, host.RoundStart{SavePath: h.savePath})
}

func (h *Host) jobOf(id int) (*Character, *Job, error) {
	character, ok := h.characters[id]
	if !ok {
		return nil, nil, fmt.Errorf("character %d not found", id)
	}
	return character, character.job, nil
}

// Character is a host character.
type Character struct {
	id          int
	name        string
	player      bool
	job         *Job
	afflictions map[string]struct{}
}

var _ host.Character = (*Character)(nil)

// ID implements host.Character.
func (c *Character) ID() int { return c.id }

// Name returns the display name.
func (c *Character) Name() string { return c.name }

// Job implements host.Character. It returns a nil interface for characters
// without a job.
func (c *Character) Job() host.Job {
	if c.job == nil {
		return nil
	}
	return c.job
}

// IsPlayer implements host.Character.
func (c *Character) IsPlayer() bool { return c.player }

// HasAffliction implements host.Character.
func (c *Character) HasAffliction(id string) bool {
	_, ok := c.afflictions[foldKey(id)]
	return ok
}

// AddAffliction applies an affliction.
func (c *Character) AddAffliction(id string) {
	c.afflictions[foldKey(id)] = struct{}{}
}

// RemoveAffliction clears an affliction.
func (c *Character) RemoveAffliction(id string) {
	delete(c.afflictions, foldKey(id))
}

// Afflictions returns the active afflictions in ascending order.
func (c *Character) Afflictions() []string {
	return slices.Sorted(maps.Keys(c.afflictions))
}

// SetSkill sets a skill level directly, adding the skill when missing. It
// fails for characters without a job.
func (c *Character) SetSkill(id string, level float64) error {
	if c.job == nil {
		return fmt.Errorf("character %d has no job", c.id)
	}
	c.job.set(id, min(max(level, 0), MaxSkillLevel))
	return nil
}

// SkillLevel returns the current level of a skill, or 0 without a job.
func (c *Character) SkillLevel(id string) float64 {
	if c.job == nil {
		return 0
	}
	return c.job.SkillLevel(id)
}

// Job is a host job. Skill identifiers compare case-insensitively.
type Job struct {
	levels map[string]float64
}

var _ host.Job = (*Job)(nil)

// Skills implements host.Job, in ascending identifier order.
func (j *Job) Skills() []host.Skill {
	skills := make([]host.Skill, 0, len(j.levels))
	for _, id := range slices.Sorted(maps.Keys(j.levels)) {
		skills = append(skills, host.Skill{ID: id, Level: j.levels[id]})
	}
	return skills
}

// SkillLevel implements host.Job.
func (j *Job) SkillLevel(id string) float64 {
	return j.levels[foldKey(id)]
}

// SkillIDs returns the job's skill identifiers in ascending order.
func (j *Job) SkillIDs() []string {
	return slices.Sorted(maps.Keys(j.levels))
}

func (j *Job) set(id string, level float64) {
	j.levels[foldKey(id)] = level
}

func foldKey(id string) string {
	return cases.Fold().String(strings.TrimSpace(id))
}
