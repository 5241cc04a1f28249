package penalty

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"

	apperrors "github.com/louisbranch/respawn-penalty/internal/platform/errors"
	"gopkg.in/yaml.v3"
)

// Default policy values.
const (
	DefaultMultiplier          = 3
	DefaultRepeatedDeathDecay  = 5
	DefaultDisablingAffliction = "reaperstax"
)

// Policy holds the numbers that drive recovery boosts.
type Policy struct {
	// Multiplier scales gains while a character is below its target.
	Multiplier float64 `yaml:"multiplier"`
	// Decay lowers a standing target each time the character dies again.
	Decay float64 `yaml:"repeated_death_decay"`
	// DisablingAffliction turns boosts off while the character bears it.
	// Empty disables the check.
	DisablingAffliction string `yaml:"disabling_affliction"`
}

// DefaultPolicy returns the stock tuning.
func DefaultPolicy() Policy {
	return Policy{
		Multiplier:          DefaultMultiplier,
		Decay:               DefaultRepeatedDeathDecay,
		DisablingAffliction: DefaultDisablingAffliction,
	}
}

// Validate reports whether the policy can be used by a Tracker.
func (p Policy) Validate() error {
	if math.IsNaN(p.Multiplier) || math.IsInf(p.Multiplier, 0) || p.Multiplier < 1 {
		return apperrors.New(apperrors.CodePolicyInvalid, fmt.Sprintf("multiplier %v must be a finite number >= 1", p.Multiplier))
	}
	if math.IsNaN(p.Decay) || math.IsInf(p.Decay, 0) || p.Decay < 0 {
		return apperrors.New(apperrors.CodePolicyInvalid, fmt.Sprintf("repeated death decay %v must be a finite number >= 0", p.Decay))
	}
	return nil
}

// LoadPolicyFile reads a YAML policy. Keys absent from the file keep their
// default values. An empty path returns DefaultPolicy.
func LoadPolicyFile(path string) (Policy, error) {
	policy := DefaultPolicy()
	if path == "" {
		return policy, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Policy{}, apperrors.WrapWithMetadata(apperrors.CodePolicyInvalid, "policy file not found", map[string]string{"path": path}, err)
		}
		return Policy{}, fmt.Errorf("read policy file: %w", err)
	}
	if err := yaml.Unmarshal(data, &policy); err != nil {
		return Policy{}, apperrors.WrapWithMetadata(apperrors.CodePolicyInvalid, "decode policy file", map[string]string{"path": path}, err)
	}
	if err := policy.Validate(); err != nil {
		return Policy{}, err
	}
	return policy, nil
}
