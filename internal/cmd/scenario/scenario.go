// Package scenario implements the scenario command.
package scenario

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"

	"github.com/louisbranch/respawn-penalty/internal/penaltymod"
	entrypoint "github.com/louisbranch/respawn-penalty/internal/platform/cmd"
	"github.com/louisbranch/respawn-penalty/internal/tools/scenario"
)

// Config holds scenario command configuration.
type Config struct {
	penaltymod.Config
	Scenario   string  `env:"SCENARIO_FILE"`
	Assertions bool    `env:"SCENARIO_ASSERT"    envDefault:"true"`
	Verbose    bool    `env:"SCENARIO_VERBOSE"`
	SavePath   string  `env:"SCENARIO_SAVE_PATH"`
	SkillLoss  float64 `env:"SCENARIO_SKILL_LOSS"`
}

// ParseConfig parses env and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.Scenario, "scenario", cfg.Scenario, "path to scenario lua file")
	fs.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "directory holding penalty state")
	fs.StringVar(&cfg.Store, "store", cfg.Store, "penalty store backend (xml or sqlite)")
	fs.StringVar(&cfg.PolicyFile, "policy", cfg.PolicyFile, "path to a YAML policy file")
	fs.StringVar(&cfg.SavePath, "save-path", cfg.SavePath, "campaign save path reported to the mod")
	fs.Float64Var(&cfg.SkillLoss, "skill-loss", cfg.SkillLoss, "fraction of each skill lost on respawn")
	fs.BoolVar(&cfg.Assertions, "assert", cfg.Assertions, "enable assertions (disable to log expectations)")
	fs.BoolVar(&cfg.Verbose, "verbose", cfg.Verbose, "enable verbose logging")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run executes the scenario command.
func Run(ctx context.Context, cfg Config, out io.Writer, errOut io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	if errOut == nil {
		errOut = io.Discard
	}
	if cfg.Scenario == "" {
		return errors.New("scenario path is required")
	}

	mode := scenario.AssertionStrict
	if !cfg.Assertions {
		mode = scenario.AssertionLogOnly
	}

	logger := log.New(errOut, "", 0)
	return entrypoint.RunWithTelemetryAndOptions(ctx, entrypoint.ServiceScenario, entrypoint.RunOptions{Logger: logger}, func(ctx context.Context) error {
		if err := scenario.RunFile(ctx, scenario.Config{
			DataDir:    cfg.DataDir,
			Store:      cfg.Store,
			PolicyFile: cfg.PolicyFile,
			SavePath:   cfg.SavePath,
			SkillLoss:  cfg.SkillLoss,
			Assertions: mode,
			Verbose:    cfg.Verbose || cfg.Config.Verbose,
			Logger:     logger,
		}, cfg.Scenario); err != nil {
			return err
		}
		_, err := fmt.Fprintf(out, "scenario passed: %s\n", cfg.Scenario)
		return err
	})
}
