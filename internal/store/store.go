package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Edgeworth/internal/economy"
)

// ErrNotFound is returned by writes that matched no scenario.
var ErrNotFound = errors.New("scenario not found")

// Scenario is a named parameter set. Solver results are derived on demand and
// never stored.
type Scenario struct {
	ID          uuid.UUID      `json:"scenario_id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Params      economy.Params `json:"params"`
	CreatedBy   string         `json:"created_by,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

type ScenarioFilter struct {
	Name      string
	CreatedBy string
	Limit     int
	Offset    int
}

type Store interface {
	CreateScenario(ctx context.Context, sc *Scenario) error
	GetScenario(ctx context.Context, id uuid.UUID) (*Scenario, error)
	ListScenarios(ctx context.Context, filter ScenarioFilter) ([]*Scenario, error)
	UpdateScenario(ctx context.Context, sc *Scenario) error
	DeleteScenario(ctx context.Context, id uuid.UUID) error

	Close() error
}
