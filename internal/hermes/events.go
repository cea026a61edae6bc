package hermes

import (
	"time"

	"github.com/MikeSquared-Agency/Edgeworth/internal/economy"
)

type ScenarioEvent struct {
	ScenarioID string         `json:"scenario_id"`
	Name       string         `json:"name,omitempty"`
	Params     economy.Params `json:"params"`
	ClientID   string         `json:"client_id,omitempty"`
}

// SolveRequestEvent asks the broker for a dictator allocation. Params are
// resolved from ScenarioID when set, then from Params, then from the
// configured defaults.
type SolveRequestEvent struct {
	RequestID  string          `json:"request_id"`
	Agent      string          `json:"agent"`
	ScenarioID string          `json:"scenario_id,omitempty"`
	Params     *economy.Params `json:"params,omitempty"`
	ReplyTo    string          `json:"reply_to,omitempty"`
}

type DictatorSolvedEvent struct {
	RequestID  string                  `json:"request_id,omitempty"`
	ScenarioID string                  `json:"scenario_id,omitempty"`
	Params     economy.Params          `json:"params"`
	Result     *economy.DictatorResult `json:"result,omitempty"`
	Error      string                  `json:"error,omitempty"`
	DurationMs int64                   `json:"duration_ms"`
	Timestamp  time.Time               `json:"timestamp"`
}

type EquilibriumFoundEvent struct {
	Params      economy.Params       `json:"params"`
	Equilibrium *economy.Equilibrium `json:"equilibrium"`
	Timestamp   time.Time            `json:"timestamp"`
}
