package scenario

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/louisbranch/respawn-penalty/internal/host"
	"github.com/louisbranch/respawn-penalty/internal/host/memhost"
	"github.com/louisbranch/respawn-penalty/internal/penaltymod"
)

// Config controls scenario execution.
type Config struct {
	DataDir    string
	Store      string
	PolicyFile string
	// SavePath is the campaign save reported to the mod. Empty uses the
	// scenario name.
	SavePath string
	// SkillLoss is passed to the host; see memhost.Options.
	SkillLoss  float64
	Assertions AssertionMode
	Verbose    bool
	Logger     *log.Logger
}

// DefaultConfig returns default runner configuration.
func DefaultConfig() Config {
	return Config{
		DataDir:    "./data",
		Store:      penaltymod.StoreXML,
		Assertions: AssertionStrict,
	}
}

// Runner executes Lua scenarios against an in-memory host running the
// respawn penalty mod.
type Runner struct {
	cfg        Config
	assertions Assertions
	logger     *log.Logger
	verbose    bool
}

// NewRunner prepares a scenario runner.
func NewRunner(cfg Config) (*Runner, error) {
	if strings.TrimSpace(cfg.DataDir) == "" {
		return nil, errors.New("data directory is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(os.Stderr, "", 0)
	}
	return &Runner{
		cfg:        cfg,
		assertions: Assertions{Mode: cfg.Assertions, Logger: logger},
		logger:     logger,
		verbose:    cfg.Verbose,
	}, nil
}

// RunFile loads and executes a scenario file.
func RunFile(ctx context.Context, cfg Config, path string) error {
	runner, err := NewRunner(cfg)
	if err != nil {
		return err
	}
	scenario, err := LoadScenarioFromFile(path)
	if err != nil {
		return err
	}
	return runner.RunScenario(ctx, scenario)
}

// RunScenario executes the scenario steps in a fresh session.
func (r *Runner) RunScenario(ctx context.Context, scenario *Scenario) (err error) {
	if scenario == nil {
		return errors.New("scenario is required")
	}
	r.logf("scenario start: %s (%d steps)", scenario.Name, len(scenario.Steps))

	state := &scenarioState{}
	if err := r.openSession(state, r.savePath(scenario), nil); err != nil {
		return err
	}
	defer func() {
		if closeErr := state.close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close session: %w", closeErr)
		}
	}()

	for index, step := range scenario.Steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		stepNumber := index + 1
		r.logf("step %d/%d start: %s", stepNumber, len(scenario.Steps), step.Kind)
		stepStart := time.Now()
		if err := r.runStep(ctx, state, step); err != nil {
			return fmt.Errorf("step %d (%s): %w", stepNumber, step.Kind, err)
		}
		r.logf("step %d/%d done: %s (%s)", stepNumber, len(scenario.Steps), step.Kind, time.Since(stepStart))
	}
	r.logf("scenario done: %s", scenario.Name)
	return nil
}

func (r *Runner) savePath(scenario *Scenario) string {
	if path := strings.TrimSpace(r.cfg.SavePath); path != "" {
		return path
	}
	name := strings.Map(func(c rune) rune {
		if c == '/' || c == '\\' || c == ' ' {
			return '_'
		}
		return c
	}, strings.TrimSpace(scenario.Name))
	if name == "" {
		name = "scenario"
	}
	return name + ".save"
}

// openSession builds hooks, mod and host into state and re-adds characters.
func (r *Runner) openSession(state *scenarioState, savePath string, characters []memhost.CharacterSpec) error {
	hooks := host.NewHooks(r.logger)
	mod, err := penaltymod.New(penaltymod.Config{
		DataDir:    r.cfg.DataDir,
		Store:      r.cfg.Store,
		PolicyFile: r.cfg.PolicyFile,
		Verbose:    r.verbose,
	}, penaltymod.Options{Logger: r.logger})
	if err != nil {
		return err
	}
	mod.Register(hooks)

	gameHost, err := memhost.New(hooks, memhost.Options{SavePath: savePath, SkillLoss: r.cfg.SkillLoss})
	if err != nil {
		_ = mod.Close()
		return err
	}
	for _, spec := range characters {
		if _, err := gameHost.AddCharacter(spec); err != nil {
			_ = mod.Close()
			return err
		}
	}

	state.hooks = hooks
	state.host = gameHost
	state.mod = mod
	state.sessions++
	return nil
}

func (r *Runner) logf(format string, args ...any) {
	if !r.verbose || r.logger == nil {
		return
	}
	r.logger.Printf(format, args...)
}
