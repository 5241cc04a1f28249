package penalty

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/louisbranch/respawn-penalty/internal/host"
)

type fakeJob struct {
	levels map[string]float64
}

func (j *fakeJob) Skills() []host.Skill {
	skills := make([]host.Skill, 0, len(j.levels))
	for id, level := range j.levels {
		skills = append(skills, host.Skill{ID: id, Level: level})
	}
	return skills
}

func (j *fakeJob) SkillLevel(id string) float64 {
	for known, level := range j.levels {
		if strings.EqualFold(known, id) {
			return level
		}
	}
	return 0
}

type fakeCharacter struct {
	id          int
	job         *fakeJob
	bot         bool
	afflictions map[string]bool
}

func (c *fakeCharacter) ID() int { return c.id }

func (c *fakeCharacter) Job() host.Job {
	if c.job == nil {
		return nil
	}
	return c.job
}

func (c *fakeCharacter) IsPlayer() bool { return !c.bot }

func (c *fakeCharacter) HasAffliction(id string) bool { return c.afflictions[id] }

func newCharacter(id int, levels map[string]float64) *fakeCharacter {
	return &fakeCharacter{id: id, job: &fakeJob{levels: levels}, afflictions: map[string]bool{}}
}

func newTracker(t *testing.T) *Tracker {
	t.Helper()
	tracker, err := NewTracker(DefaultPolicy())
	if err != nil {
		t.Fatalf("new tracker: %v", err)
	}
	return tracker
}

func mustTarget(t *testing.T, tracker *Tracker, id int, skill string) float64 {
	t.Helper()
	target, ok := tracker.Target(CharacterID(id), skill)
	if !ok {
		t.Fatalf("expected target for character %d skill %q", id, skill)
	}
	return target
}

func TestNewTrackerRejectsInvalidPolicy(t *testing.T) {
	if _, err := NewTracker(Policy{Multiplier: 0.5}); err == nil {
		t.Fatal("expected invalid policy error")
	}
}

func TestRecordDeathWithoutJobIsNoop(t *testing.T) {
	tracker := newTracker(t)
	character := &fakeCharacter{id: 7}

	if tracker.RecordDeath(character) {
		t.Fatal("expected no record for character without job")
	}
	if tracker.Len() != 0 {
		t.Fatalf("len = %d, want 0", tracker.Len())
	}
}

func TestRecordDeathWithEmptyJobIsNoop(t *testing.T) {
	tracker := newTracker(t)
	if tracker.RecordDeath(newCharacter(7, map[string]float64{})) {
		t.Fatal("expected no record for job without skills")
	}
	if tracker.Len() != 0 {
		t.Fatalf("len = %d, want 0", tracker.Len())
	}
}

func TestRecordDeathSnapshotsCurrentLevels(t *testing.T) {
	tracker := newTracker(t)
	character := newCharacter(1, map[string]float64{"helm": 40, "weapons": 22.5})

	if !tracker.RecordDeath(character) {
		t.Fatal("expected record")
	}
	if got := mustTarget(t, tracker, 1, "helm"); got != 40 {
		t.Fatalf("helm target = %v, want 40", got)
	}
	if got := mustTarget(t, tracker, 1, "weapons"); got != 22.5 {
		t.Fatalf("weapons target = %v, want 22.5", got)
	}
}

func TestRecordDeathRepeatedDeathDecay(t *testing.T) {
	tracker := newTracker(t)
	character := newCharacter(1, map[string]float64{"helm": 40})

	tracker.RecordDeath(character)
	tracker.RecordDeath(character)

	if got := mustTarget(t, tracker, 1, "helm"); got != 35 {
		t.Fatalf("helm target = %v, want 35", got)
	}

	tracker.RecordDeath(character)
	if got := mustTarget(t, tracker, 1, "helm"); got != 30 {
		t.Fatalf("helm target after third death = %v, want 30", got)
	}
}

func TestRecordDeathDecayFloorsAtZero(t *testing.T) {
	tracker := newTracker(t)
	character := newCharacter(1, map[string]float64{"medical": 3})

	tracker.RecordDeath(character)
	character.job.levels["medical"] = 10
	tracker.RecordDeath(character)

	if got := mustTarget(t, tracker, 1, "medical"); got != 0 {
		t.Fatalf("medical target = %v, want 0", got)
	}
}

func TestRecordDeathTargetBoundedByCurrentLevel(t *testing.T) {
	tracker := newTracker(t)
	character := newCharacter(1, map[string]float64{"helm": 40})

	tracker.RecordDeath(character)
	character.job.levels["helm"] = 20
	tracker.RecordDeath(character)

	if got := mustTarget(t, tracker, 1, "helm"); got != 20 {
		t.Fatalf("helm target = %v, want 20", got)
	}
}

func TestRecordDeathTracksSkillChanges(t *testing.T) {
	tracker := newTracker(t)
	character := newCharacter(1, map[string]float64{"helm": 40, "weapons": 30})
	tracker.RecordDeath(character)

	character.job.levels = map[string]float64{"helm": 40, "electrical": 12}
	tracker.RecordDeath(character)

	if _, ok := tracker.Target(1, "weapons"); ok {
		t.Fatal("expected dropped skill to leave the record")
	}
	if got := mustTarget(t, tracker, 1, "electrical"); got != 12 {
		t.Fatalf("electrical target = %v, want 12", got)
	}
	if got := mustTarget(t, tracker, 1, "helm"); got != 35 {
		t.Fatalf("helm target = %v, want 35", got)
	}
}

func TestRecordDeathFoldsSkillCase(t *testing.T) {
	tracker := newTracker(t)
	tracker.RecordDeath(newCharacter(1, map[string]float64{"Helm": 40}))

	if got := mustTarget(t, tracker, 1, "HELM"); got != 40 {
		t.Fatalf("helm target = %v, want 40", got)
	}
	record, _ := tracker.Record(1)
	if _, ok := record["helm"]; !ok {
		t.Fatalf("record keys = %v, want folded helm", record.Skills())
	}
}

func TestRecordDeathSkipsUnstorableSkills(t *testing.T) {
	tracker := newTracker(t)
	tracker.RecordDeath(newCharacter(1, map[string]float64{"Identifier": 12, "ns:helm": 5, "helm": 40}))

	record, _ := tracker.Record(1)
	if got := record.Skills(); len(got) != 1 || got[0] != "helm" {
		t.Fatalf("record skills = %v, want only helm", got)
	}
	path := filepath.Join(t.TempDir(), "campaign.xml")
	if err := tracker.SaveState(path); err != nil {
		t.Fatalf("save state: %v", err)
	}

	if tracker.RecordDeath(newCharacter(2, map[string]float64{"IDENTIFIER": 3})) {
		t.Fatal("expected no record when no skill is storable")
	}
	if _, ok := tracker.Record(2); ok {
		t.Fatal("expected character 2 untracked")
	}
}

func TestRecordDeathTargetNeverExceedsLevelAtDeath(t *testing.T) {
	tracker := newTracker(t)
	character := newCharacter(3, map[string]float64{"mechanical": 0})

	levels := []float64{50, 52, 10, 80, 79, 3, 3, 100, 4}
	for _, level := range levels {
		character.job.levels["mechanical"] = level
		tracker.RecordDeath(character)
		if got := mustTarget(t, tracker, 3, "mechanical"); got > level {
			t.Fatalf("target %v exceeds level %v at death", got, level)
		}
	}
}

func TestRecordDeathKeepsOtherCharacters(t *testing.T) {
	tracker := newTracker(t)
	tracker.RecordDeath(newCharacter(1, map[string]float64{"helm": 40}))
	tracker.RecordDeath(newCharacter(2, map[string]float64{"helm": 10}))

	if got := mustTarget(t, tracker, 1, "helm"); got != 40 {
		t.Fatalf("character 1 helm = %v, want 40", got)
	}
	if tracker.Len() != 2 {
		t.Fatalf("len = %d, want 2", tracker.Len())
	}
}

func TestEvaluateBoostArithmetic(t *testing.T) {
	tests := []struct {
		name     string
		target   float64
		current  float64
		increase float64
		want     float64
		gap      float64
	}{
		{name: "gap positive", target: 50, current: 40, increase: 5, want: 15, gap: 5},
		{name: "gap negative", target: 50, current: 48, increase: 5, want: 15, gap: -3},
		{name: "gap zero", target: 50, current: 45, increase: 5, want: 15, gap: 0},
		{name: "small gain far behind", target: 60, current: 20, increase: 0.5, want: 79.5, gap: 39.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker := newTracker(t)
			character := newCharacter(1, map[string]float64{"helm": tt.target})
			tracker.RecordDeath(character)
			character.job.levels["helm"] = tt.current

			boost := tracker.Evaluate(character, "helm", tt.increase, false)
			if boost.Increase != tt.want {
				t.Fatalf("increase = %v, want %v", boost.Increase, tt.want)
			}
			if !boost.Applied {
				t.Fatal("expected boost to apply")
			}
			if boost.Gap != tt.gap {
				t.Fatalf("gap = %v, want %v", boost.Gap, tt.gap)
			}
			if boost.Target != tt.target || boost.Current != tt.current {
				t.Fatalf("target/current = %v/%v, want %v/%v", boost.Target, boost.Current, tt.target, tt.current)
			}
		})
	}
}

func TestComputeBoostedIncreaseUnchangedWhenPreconditionsFail(t *testing.T) {
	tracker := newTracker(t)
	dead := newCharacter(1, map[string]float64{"helm": 50})
	tracker.RecordDeath(dead)
	dead.job.levels["helm"] = 40

	bot := newCharacter(2, map[string]float64{"helm": 50})
	bot.bot = true
	tracker.RecordDeath(bot)
	bot.job.levels["helm"] = 40

	taxed := newCharacter(3, map[string]float64{"helm": 50})
	tracker.RecordDeath(taxed)
	taxed.job.levels["helm"] = 40
	taxed.afflictions[DefaultDisablingAffliction] = true

	jobless := newCharacter(4, map[string]float64{"helm": 50})
	tracker.RecordDeath(jobless)
	jobless.job = nil

	tests := []struct {
		name      string
		character host.Character
		skill     string
		ability   bool
	}{
		{name: "no record", character: newCharacter(99, map[string]float64{"helm": 1}), skill: "helm"},
		{name: "no skill in record", character: dead, skill: "medical"},
		{name: "gained from ability", character: dead, skill: "helm", ability: true},
		{name: "not a player", character: bot, skill: "helm"},
		{name: "disabling affliction", character: taxed, skill: "helm"},
		{name: "no job", character: jobless, skill: "helm"},
		{name: "nil character", character: nil, skill: "helm"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tracker.ComputeBoostedIncrease(tt.character, tt.skill, 5, tt.ability); got != 5 {
				t.Fatalf("increase = %v, want 5", got)
			}
		})
	}
}

func TestComputeBoostedIncreaseAfterRecoveryIsNoop(t *testing.T) {
	tracker := newTracker(t)
	character := newCharacter(1, map[string]float64{"helm": 50})
	tracker.RecordDeath(character)

	for _, level := range []float64{50, 51, 75} {
		character.job.levels["helm"] = level
		boost := tracker.Evaluate(character, "helm", 2, false)
		if boost.Increase != 2 || boost.Applied {
			t.Fatalf("level %v: boost = %+v, want unchanged 2", level, boost)
		}
	}
	if _, ok := tracker.Target(1, "helm"); !ok {
		t.Fatal("expected record to remain after recovery")
	}
}

func TestComputeBoostedIncreaseIgnoresAfflictionWhenPolicyDisablesCheck(t *testing.T) {
	policy := DefaultPolicy()
	policy.DisablingAffliction = ""
	tracker, err := NewTracker(policy)
	if err != nil {
		t.Fatalf("new tracker: %v", err)
	}
	character := newCharacter(1, map[string]float64{"helm": 50})
	tracker.RecordDeath(character)
	character.job.levels["helm"] = 40
	character.afflictions[DefaultDisablingAffliction] = true

	if got := tracker.ComputeBoostedIncrease(character, "helm", 5, false); got != 15 {
		t.Fatalf("increase = %v, want 15", got)
	}
}

func TestComputeBoostedIncreaseUsesPolicyMultiplier(t *testing.T) {
	tracker, err := NewTracker(Policy{Multiplier: 2, Decay: 5})
	if err != nil {
		t.Fatalf("new tracker: %v", err)
	}
	character := newCharacter(1, map[string]float64{"helm": 50})
	tracker.RecordDeath(character)
	character.job.levels["helm"] = 40

	// gap = 50 - 45 = 5, boosted = 5 + 5*(2-1)
	if got := tracker.ComputeBoostedIncrease(character, "helm", 5, false); got != 10 {
		t.Fatalf("increase = %v, want 10", got)
	}
}

func TestMergeReplacesPerCharacterAndSkipsEmpty(t *testing.T) {
	tracker := newTracker(t)
	tracker.RecordDeath(newCharacter(1, map[string]float64{"helm": 40}))
	tracker.RecordDeath(newCharacter(2, map[string]float64{"helm": 10}))

	applied := tracker.Merge(Table{
		1: {"weapons": 30},
		3: {},
	})
	if applied != 1 {
		t.Fatalf("applied = %d, want 1", applied)
	}
	if _, ok := tracker.Target(1, "helm"); ok {
		t.Fatal("expected merged record to replace the old one")
	}
	if got := mustTarget(t, tracker, 2, "helm"); got != 10 {
		t.Fatalf("unlisted character helm = %v, want 10", got)
	}
	if _, ok := tracker.Record(3); ok {
		t.Fatal("expected empty record to be skipped")
	}
}

func TestSnapshotIsDetached(t *testing.T) {
	tracker := newTracker(t)
	tracker.RecordDeath(newCharacter(1, map[string]float64{"helm": 40}))

	snapshot := tracker.Snapshot()
	snapshot[1]["helm"] = 0
	delete(snapshot, 1)

	if got := mustTarget(t, tracker, 1, "helm"); got != 40 {
		t.Fatalf("helm target = %v, want 40", got)
	}
}
