package scenario

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/louisbranch/respawn-penalty/internal/host"
	"github.com/louisbranch/respawn-penalty/internal/host/memhost"
	"github.com/louisbranch/respawn-penalty/internal/penalty"
)

// levelTolerance absorbs float drift in expected skill levels.
const levelTolerance = 1e-6

func (r *Runner) failf(format string, args ...any) error {
	return r.assertions.Failf(format, args...)
}

func (r *Runner) assertf(format string, args ...any) error {
	return r.assertions.Assertf(format, args...)
}

func (r *Runner) character(state *scenarioState, step Step) (*memhost.Character, error) {
	id, ok := readInt(step.Args, "id")
	if !ok {
		return nil, r.failf("%s requires a character id", step.Kind)
	}
	character, ok := state.host.Character(id)
	if !ok {
		return nil, r.failf("unknown character %d", id)
	}
	return character, nil
}

func approxEqual(got, want float64) bool {
	return math.Abs(got-want) <= levelTolerance
}

func requiredString(args map[string]any, key string) string {
	value, ok := args[key]
	if !ok {
		return ""
	}
	text, ok := value.(string)
	if ok && text != "" {
		return text
	}
	return ""
}

func readInt(args map[string]any, key string) (int, bool) {
	value, ok := args[key]
	if !ok {
		return 0, false
	}
	switch typed := value.(type) {
	case int:
		return typed, true
	case float64:
		return int(typed), true
	default:
		return 0, false
	}
}

func readNumber(args map[string]any, key string) (float64, bool) {
	value, ok := args[key]
	if !ok {
		return 0, false
	}
	return toNumber(value)
}

func toNumber(value any) (float64, bool) {
	switch typed := value.(type) {
	case int:
		return float64(typed), true
	case float64:
		return typed, true
	default:
		return 0, false
	}
}

func optionalString(args map[string]any, key, fallback string) string {
	value, ok := args[key]
	if !ok {
		return fallback
	}
	text, ok := value.(string)
	if ok && text != "" {
		return text
	}
	return fallback
}

func optionalInt(args map[string]any, key string, fallback int) int {
	value, ok := readInt(args, key)
	if !ok {
		return fallback
	}
	return value
}

func optionalBool(args map[string]any, key string, fallback bool) bool {
	value, ok := args[key]
	if !ok {
		return fallback
	}
	switch typed := value.(type) {
	case bool:
		return typed
	case string:
		lower := strings.ToLower(strings.TrimSpace(typed))
		if lower == "true" || lower == "yes" || lower == "1" {
			return true
		}
		if lower == "false" || lower == "no" || lower == "0" {
			return false
		}
	}
	return fallback
}

func readStringSlice(args map[string]any, key string) []string {
	value, ok := args[key]
	if !ok {
		return nil
	}
	switch typed := value.(type) {
	case string:
		if typed == "" {
			return nil
		}
		return []string{typed}
	case []any:
		values := make([]string, 0, len(typed))
		for _, item := range typed {
			if text, ok := item.(string); ok && text != "" {
				values = append(values, text)
			}
		}
		return values
	default:
		return nil
	}
}

// readSkillLevels converts a Lua table of skill = level pairs.
func readSkillLevels(raw any) (map[string]float64, error) {
	table, ok := raw.(map[string]any)
	if !ok {
		return nil,fmt.Errorf("skills must be a table of skill = level")
	}
	skills := make(map[string]float64, len(table))
	for id, value := range table {
		level, ok := toNumber(value)
		if !ok {
			return nil, fmt.Errorf("skill %q level must be a number", id)
		}
		skills[id] = level
	}
	return skills, nil
}

func skillNames(skills []host.Skill) []string {
	names := make([]string, 0, len(skills))
	for _, skill := range skills {
		names = append(names, skill.ID)
	}
	return names
}

func recordSkills(record penalty.Record) []string {
	names := make([]string, 0, len(record))
	for _, id := range record.Skills() {
		names = append(names, id.String())
	}
	return names
}

func containsFold(values []string, value string) bool {
	return slices.ContainsFunc(values, func(candidate string) bool {
		return strings.EqualFold(candidate, value)
	})
}

func didYouMean(value string, candidates []string) string {
	if suggestion := suggest(value, candidates); suggestion != "" {
		return fmt.Sprintf(" (did you mean %q?)", suggestion)
	}
	return ""
}

// suggest returns the closest candidate within the edit distance allowed for
// its length, or "" when nothing is close.
func suggest(value string, candidates []string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if len(value) < 3 {
		return ""
	}
	best := ""
	bestDist := math.MaxInt
	for _, candidate := range candidates {
		compare := strings.ToLower(candidate)
		if compare == value {
			continue
		}
		dist := levenshtein.ComputeDistance(value, compare)
		if dist > levenshteinLimit(len(compare)) {
			continue
		}
		if dist < bestDist || (dist == bestDist && candidate < best) {
			best = candidate
			bestDist = dist
		}
	}
	return best
}

func levenshteinLimit(length int) int {
	switch {
	case length <= 4:
		return 1
	case length <= 8:
		return 2
	default:
		return 3
	}
}
