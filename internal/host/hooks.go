package host

import (
	"context"
	"io"
	"log"
)

// Hooks is the registry of extension points a host exposes. Handlers run
// synchronously on the caller's goroutine in registration order. A Hooks value
// is not safe for concurrent use.
type Hooks struct {
	logger         *log.Logger
	skillIncrease  []namedHandler[SkillIncreaseHandler]
	skillReduction []namedHandler[SkillReductionHandler]
	savePlayers    []namedHandler[SavePlayersHandler]
	roundStart     []namedHandler[RoundStartHandler]
}

type namedHandler[H any] struct {
	name string
	fn   H
}

// NewHooks creates an empty registry. Handler failures are reported to logger;
// a nil logger discards them.
func NewHooks(logger *log.Logger) *Hooks {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Hooks{logger: logger}
}

// OnSkillIncrease registers an interceptor for skill gains.
func (h *Hooks) OnSkillIncrease(name string, fn SkillIncreaseHandler) {
	if fn == nil {
		return
	}
	h.skillIncrease = append(h.skillIncrease, namedHandler[SkillIncreaseHandler]{name: name, fn: fn})
}

// OnSkillReduction registers an observer for respawn skill reductions.
func (h *Hooks) OnSkillReduction(name string, fn SkillReductionHandler) {
	if fn == nil {
		return
	}
	h.skillReduction = append(h.skillReduction, namedHandler[SkillReductionHandler]{name: name, fn: fn})
}

// OnSavePlayers registers a handler for the campaign save point.
func (h *Hooks) OnSavePlayers(name string, fn SavePlayersHandler) {
	if fn == nil {
		return
	}
	h.savePlayers = append(h.savePlayers, namedHandler[SavePlayersHandler]{name: name, fn: fn})
}

// OnRoundStart registers a handler for round start.
func (h *Hooks) OnRoundStart(name string, fn RoundStartHandler) {
	if fn == nil {
		return
	}
	h.roundStart = append(h.roundStart, namedHandler[RoundStartHandler]{name: name, fn: fn})
}

// FireSkillIncrease runs the interceptors and returns the increase to apply.
// Each handler sees the value returned by the previous one.
func (h *Hooks) FireSkillIncrease(event SkillIncrease) float64 {
	for _, handler := range h.skillIncrease {
		event.Increase = handler.fn(event)
	}
	return event.Increase
}

// FireSkillReduction notifies every observer.
func (h *Hooks) FireSkillReduction(event SkillReduction) {
	for _, handler := range h.skillReduction {
		handler.fn(event)
	}
}

// FireSavePlayers runs the save handlers. Failures are logged and do not stop
// later handlers; the number of failed handlers is returned.
func (h *Hooks) FireSavePlayers(ctx context.Context, event SavePlayers) int {
	failed := 0
	for _, handler := range h.savePlayers {
		if err := handler.fn(ctx, event); err != nil {
			h.logger.Printf("hook %s (save players): %v", handler.name, err)
			failed++
		}
	}
	return failed
}

// FireRoundStart runs the round start handlers with the same failure policy
// as FireSavePlayers.
func (h *Hooks) FireRoundStart(ctx context.Context, event RoundStart) int {
	failed := 0
	for _, handler := range h.roundStart {
		if err := handler.fn(ctx, event); err != nil {
			h.logger.Printf("hook %s (round start): %v", handler.name, err)
			failed++
		}
	}
	return failed
}
