package scenario

import (
	"context"
	"fmt"

	"github.com/louisbranch/respawn-penalty/internal/host/memhost"
	"github.com/louisbranch/respawn-penalty/internal/penalty"
)

var stepKinds = []string{
	"character",
	"set_skill",
	"gain",
	"respawn",
	"afflict",
	"cure",
	"save",
	"start_round",
	"restart",
	"expect_level",
	"expect_target",
	"expect_no_target",
	"expect_tracked",
}

func (r *Runner) runStep(ctx context.Context, state *scenarioState, step Step) error {
	switch step.Kind {
	case "character":
		return r.runCharacterStep(state, step)
	case "set_skill":
		return r.runSetSkillStep(state, step)
	case "gain":
		return r.runGainStep(state, step)
	case "respawn":
		return r.runRespawnStep(state, step)
	case "afflict", "cure":
		return r.runAfflictionStep(state, step)
	case "save":
		return r.runSaveStep(ctx, state, step)
	case "start_round":
		return r.runStartRoundStep(ctx, state, step)
	case "restart":
		return r.runRestartStep(state)
	case "expect_level":
		return r.runExpectLevelStep(state, step)
	case "expect_target":
		return r.runExpectTargetStep(state, step)
	case "expect_no_target":
		return r.runExpectNoTargetStep(state, step)
	case "expect_tracked":
		return r.runExpectTrackedStep(state, step)
	default:
		if suggestion := suggest(step.Kind, stepKinds); suggestion != "" {
			return r.failf("unknown step kind %q (did you mean %q?)", step.Kind, suggestion)
		}
		return r.failf("unknown step kind %q", step.Kind)
	}
}

func (r *Runner) runCharacterStep(state *scenarioState, step Step) error {
	id, ok := readInt(step.Args, "id")
	if !ok {
		return r.failf("character id is required")
	}
	spec := memhost.CharacterSpec{
		ID:          id,
		Name:        optionalString(step.Args, "name", fmt.Sprintf("character-%d", id)),
		Bot:         optionalBool(step.Args, "bot", false),
		Afflictions: readStringSlice(step.Args, "afflictions"),
	}
	if raw, ok := step.Args["skills"]; ok {
		skills, err := readSkillLevels(raw)
		if err != nil {
			return r.failf("character %d: %v", id, err)
		}
		spec.Skills = skills
	} else if optionalBool(step.Args, "job", false) {
		spec.Skills = map[string]float64{}
	}
	if _, err := state.host.AddCharacter(spec); err != nil {
		return r.failf("%v", err)
	}
	return nil
}

func (r *Runner) runSetSkillStep(state *scenarioState, step Step) error {
	character, err := r.character(state, step)
	if err != nil {
		return err
	}
	skill := requiredString(step.Args, "skill")
	level, ok := readNumber(step.Args, "level")
	if skill == "" || !ok {
		return r.failf("set_skill requires skill and level")
	}
	if err := character.SetSkill(skill, level); err != nil {
		return r.failf("%v", err)
	}
	return nil
}

func (r *Runner) runGainStep(state *scenarioState, step Step) error {
	character, err := r.character(state, step)
	if err != nil {
		return err
	}
	skill := requiredString(step.Args, "skill")
	amount, ok := readNumber(step.Args, "amount")
	if skill == "" || !ok {
		return r.failf("gain requires skill and amount")
	}
	fromAbility := optionalBool(step.Args, "ability", false)

	before := character.SkillLevel(skill)
	gained, err := state.host.IncreaseSkill(character.ID(), skill, amount, fromAbility)
	if err != nil {
		return r.failf("%v", err)
	}
	r.logf("character %d %s %.4f -> %.4f (gained %.4f)", character.ID(), skill, before, character.SkillLevel(skill), gained)

	if want, ok := readNumber(step.Args, "expect_gain"); ok && !approxEqual(gained, want) {
		return r.assertf("character %d %s gained %v, want %v", character.ID(), skill, gained, want)
	}
	if want, ok := readNumber(step.Args, "expect_level"); ok && !approxEqual(character.SkillLevel(skill), want) {
		return r.assertf("character %d %s level %v, want %v", character.ID(), skill, character.SkillLevel(skill), want)
	}
	return nil
}

func (r *Runner) runRespawnStep(state *scenarioState, step Step) error {
	character, err := r.character(state, step)
	if err != nil {
		return err
	}
	if err := state.host.Respawn(character.ID()); err != nil {
		return r.failf("%v", err)
	}
	return nil
}

func (r *Runner) runAfflictionStep(state *scenarioState, step Step) error {
	character, err := r.character(state, step)
	if err != nil {
		return err
	}
	affliction := requiredString(step.Args, "affliction")
	if affliction == "" {
		return r.failf("%s requires an affliction", step.Kind)
	}
	if step.Kind == "cure" {
		character.RemoveAffliction(affliction)
		return nil
	}
	character.AddAffliction(affliction)
	return nil
}

func (r *Runner) runSaveStep(ctx context.Context, state *scenarioState, step Step) error {
	failed := state.host.SavePlayers(ctx)
	if want := optionalInt(step.Args, "failures", 0); failed != want {
		return r.assertf("save failures = %d, want %d", failed, want)
	}
	return nil
}

func (r *Runner) runStartRoundStep(ctx context.Context, state *scenarioState, step Step) error {
	failed := state.host.StartRound(ctx)
	if want := optionalInt(step.Args, "failures", 0); failed != want {
		return r.assertf("round start failures = %d, want %d", failed, want)
	}
	return nil
}

// runRestartStep starts a new session with the same characters, skills and
// afflictions and an empty penalty table.
func (r *Runner) runRestartStep(state *scenarioState) error {
	characters := make([]memhost.CharacterSpec, 0, len(state.host.CharacterIDs()))
	for _, id := range state.host.CharacterIDs() {
		character, _ := state.host.Character(id)
		spec := memhost.CharacterSpec{
			ID:          id,
			Name:        character.Name(),
			Bot:         !character.IsPlayer(),
			Afflictions: character.Afflictions(),
		}
		if job := character.Job(); job != nil {
			spec.Skills = map[string]float64{}
			for _, skill := range job.Skills() {
				spec.Skills[skill.ID] = skill.Level
			}
		}
		characters = append(characters, spec)
	}
	savePath := state.host.SavePath()
	if err := state.close(); err != nil {
		return r.failf("close session: %v", err)
	}
	if err := r.openSession(state, savePath, characters); err != nil {
		return r.failf("open session: %v", err)
	}
	r.logf("session %d started", state.sessions)
	return nil
}

func (r *Runner) runExpectLevelStep(state *scenarioState, step Step) error {
	character, err := r.character(state, step)
	if err != nil {
		return err
	}
	skill := requiredString(step.Args, "skill")
	want, ok := readNumber(step.Args, "level")
	if skill == "" || !ok {
		return r.failf("expect_level requires skill and level")
	}
	job := character.Job()
	if job == nil {
		return r.assertf("character %d has no job", character.ID())
	}
	got := job.SkillLevel(skill)
	if approxEqual(got, want) {
		return nil
	}
	if skills := skillNames(job.Skills()); !containsFold(skills, skill) {
		return r.assertf("character %d has no skill %q%s", character.ID(), skill, didYouMean(skill, skills))
	}
	return r.assertf("character %d %s level = %v, want %v", character.ID(), skill, got, want)
}

func (r *Runner) runExpectTargetStep(state *scenarioState, step Step) error {
	id, ok := readInt(step.Args, "id")
	if !ok {
		return r.failf("expect_target requires a character id")
	}
	skill := requiredString(step.Args, "skill")
	want, ok := readNumber(step.Args, "target")
	if skill == "" || !ok {
		return r.failf("expect_target requires skill and target")
	}
	tracker := state.mod.Tracker()
	got, ok := tracker.Target(penalty.CharacterID(id), skill)
	if !ok {
		record, _ := tracker.Record(penalty.CharacterID(id))
		return r.assertf("character %d has no target for %q%s", id, skill, didYouMean(skill, recordSkills(record)))
	}
	if !approxEqual(got, want) {
		return r.assertf("character %d %s target = %v, want %v", id, skill, got, want)
	}
	return nil
}

func (r *Runner) runExpectNoTargetStep(state *scenarioState, step Step) error {
	id, ok := readInt(step.Args, "id")
	if !ok {
		return r.failf("expect_no_target requires a character id")
	}
	tracker := state.mod.Tracker()
	skill := requiredString(step.Args, "skill")
	if skill == "" {
		if record, ok := tracker.Record(penalty.CharacterID(id)); ok {
			return r.assertf("character %d has targets for %v", id, recordSkills(record))
		}
		return nil
	}
	if target, ok := tracker.Target(penalty.CharacterID(id), skill); ok {
		return r.assertf("character %d %s target = %v, want none", id, skill, target)
	}
	return nil
}

func (r *Runner) runExpectTrackedStep(state *scenarioState, step Step) error {
	want, ok := readInt(step.Args, "count")
	if !ok {
		return r.failf("expect_tracked requires a count")
	}
	if got := state.mod.Tracker().Len(); got != want {
		return r.assertf("tracked characters = %d, want %d", got, want)
	}
	return nil
}
