// Package penaltymod wires a penalty tracker and a table store to the host's
// extension points.
package penaltymod

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/louisbranch/respawn-penalty/internal/host"
	"github.com/louisbranch/respawn-penalty/internal/penalty"
	"github.com/louisbranch/respawn-penalty/internal/penalty/storage"
	"github.com/louisbranch/respawn-penalty/internal/penalty/storage/sqlite"
	"github.com/louisbranch/respawn-penalty/internal/penalty/storage/xmlfile"
	apperrors "github.com/louisbranch/respawn-penalty/internal/platform/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Name identifies the mod's hook registrations.
const Name = "respawn-penalty"

const tracerName = "github.com/louisbranch/respawn-penalty/internal/penaltymod"

// Store backends.
const (
	StoreXML    = "xml"
	StoreSQLite = "sqlite"
)

var (
	_ storage.Store = (*xmlfile.Store)(nil)
	_ storage.Store = (*sqlite.Store)(nil)
)

// Config holds mod configuration read from RESPAWN_PENALTY_* variables.
type Config struct {
	DataDir    string `env:"DATA_DIR"    envDefault:"./data"`
	Store      string `env:"STORE"       envDefault:"xml"`
	PolicyFile string `env:"POLICY_FILE"`
	Verbose    bool   `env:"VERBOSE"`
}

// Options injects collaborators. Zero values select defaults.
type Options struct {
	Logger *log.Logger
	// Store overrides the store opened from Config.
	Store  storage.Store
	Tracer trace.Tracer
}

// Mod is one campaign session's respawn penalty state.
type Mod struct {
	tracker *penalty.Tracker
	store   storage.Store
	logger  *log.Logger
	tracer  trace.Tracer
	verbose bool
}

// OpenStore opens the store backend named by cfg.Store inside cfg.DataDir.
func OpenStore(cfg Config) (storage.Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Store)) {
	case "", StoreXML:
		return xmlfile.Open(cfg.DataDir)
	case StoreSQLite:
		return sqlite.OpenDir(cfg.DataDir)
	default:
		return nil, apperrors.WrapWithMetadata(
			apperrors.CodeConfigInvalid,
			fmt.Sprintf("unknown store %q (want %s or %s)", cfg.Store, StoreXML, StoreSQLite),
			map[string]string{"store": cfg.Store},
			nil,
		)
	}
}

// New loads the policy and store described by cfg and returns a mod with an
// empty penalty table.
func New(cfg Config, opts Options) (*Mod, error) {
	policy, err := penalty.LoadPolicyFile(cfg.PolicyFile)
	if err != nil {
		return nil, err
	}
	tracker, err := penalty.NewTracker(policy)
	if err != nil {
		return nil, err
	}

	store := opts.Store
	if store == nil {
		store, err = OpenStore(cfg)
		if err != nil {
			return nil, err
		}
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}

	return &Mod{
		tracker: tracker,
		store:   store,
		logger:  logger,
		tracer:  tracer,
		verbose: cfg.Verbose,
	}, nil
}

// Tracker returns the mod's tracker.
func (m *Mod) Tracker() *penalty.Tracker {
	return m.tracker
}

// Close releases the store.
func (m *Mod) Close() error {
	if m.store == nil {
		return nil
	}
	return m.store.Close()
}

// Register attaches the mod to the host's four extension points.
func (m *Mod) Register(hooks *host.Hooks) {
	hooks.OnSkillIncrease(Name, m.onSkillIncrease)
	hooks.OnSkillReduction(Name, m.onSkillReduction)
	hooks.OnSavePlayers(Name, m.onSavePlayers)
	hooks.OnRoundStart(Name, m.onRoundStart)
}

func (m *Mod) onSkillIncrease(event host.SkillIncrease) float64 {
	boost := m.tracker.Evaluate(event.Character, event.Skill, event.Increase, event.GainedFromAbility)
	if boost.Applied {
		m.logf("character %d %s boosted %.3f -> %.3f (level %.2f, target %.2f)",
			event.Character.ID(), event.Skill, event.Increase, boost.Increase, boost.Current, boost.Target)
	}
	return boost.Increase
}

func (m *Mod) onSkillReduction(event host.SkillReduction) {
	if m.tracker.RecordDeath(event.Character) {
		m.logf("character %d death recorded", event.Character.ID())
	}
}

func (m *Mod) onSavePlayers(ctx context.Context, event host.SavePlayers) (err error) {
	saveName := storage.SaveName(event.SavePath)
	ctx, span := m.tracer.Start(ctx, "penalty.save", trace.WithAttributes(
		attribute.String("penalty.save_name", saveName),
		attribute.Int("penalty.characters", m.tracker.Len()),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if saveName == "" {
		return fmt.Errorf("save path %q has no file name", event.SavePath)
	}
	if err := m.store.Save(ctx, saveName, m.tracker.Snapshot()); err != nil {
		return fmt.Errorf("save penalty table %q: %w", saveName, err)
	}
	m.logf("saved %d penalty records for %s", m.tracker.Len(), saveName)
	return nil
}

func (m *Mod) onRoundStart(ctx context.Context, event host.RoundStart) (err error) {
	saveName := storage.SaveName(event.SavePath)
	ctx, span := m.tracer.Start(ctx, "penalty.load", trace.WithAttributes(
		attribute.String("penalty.save_name", saveName),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if saveName == "" {
		return fmt.Errorf("save path %q has no file name", event.SavePath)
	}
	loaded, err := m.store.Load(ctx, saveName)
	if errors.Is(err, penalty.ErrNoState) {
		m.logger.Printf("no penalty state for %s: %v", saveName, err)
		span.SetAttributes(attribute.Int("penalty.loaded", 0))
		return nil
	}
	if err != nil {
		return fmt.Errorf("load penalty table %q: %w", saveName, err)
	}
	applied := m.tracker.Merge(loaded)
	span.SetAttributes(attribute.Int("penalty.loaded", applied))
	m.logf("loaded %d penalty records for %s", applied, saveName)
	return nil
}

func (m *Mod) logf(format string, args ...any) {
	if !m.verbose {
		return
	}
	m.logger.Printf(format, args...)
}
