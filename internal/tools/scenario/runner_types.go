package scenario

import (
	"github.com/louisbranch/respawn-penalty/internal/host"
	"github.com/louisbranch/respawn-penalty/internal/host/memhost"
	"github.com/louisbranch/respawn-penalty/internal/penaltymod"
)

// scenarioState is one simulated campaign session. restart replaces it with a
// fresh session that shares the store.
type scenarioState struct {
	hooks    *host.Hooks
	host     *memhost.Host
	mod      *penaltymod.Mod
	sessions int
}

func (s *scenarioState) close() error {
	if s == nil || s.mod == nil {
		return nil
	}
	return s.mod.Close()
}
