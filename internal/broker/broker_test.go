package broker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/MikeSquared-Agency/Edgeworth/internal/config"
	"github.com/MikeSquared-Agency/Edgeworth/internal/economy"
	"github.com/MikeSquared-Agency/Edgeworth/internal/hermes"
	"github.com/MikeSquared-Agency/Edgeworth/internal/metrics"
	"github.com/MikeSquared-Agency/Edgeworth/internal/store"
)

// Mocks

type mockStore struct {
	scenarios map[uuid.UUID]*store.Scenario
	err       error
}

func newMockStore() *mockStore {
	return &mockStore{scenarios: make(map[uuid.UUID]*store.Scenario)}
}

func (m *mockStore) CreateScenario(_ context.Context, sc *store.Scenario) error {
	sc.ID = uuid.New()
	m.scenarios[sc.ID] = sc
	return nil
}
func (m *mockStore) GetScenario(_ context.Context, id uuid.UUID) (*store.Scenario, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.scenarios[id], nil
}
func (m *mockStore) ListScenarios(_ context.Context, _ store.ScenarioFilter) ([]*store.Scenario, error) {
	return nil, nil
}
func (m *mockStore) UpdateScenario(_ context.Context, _ *store.Scenario) error { return nil }
func (m *mockStore) DeleteScenario(_ context.Context, _ uuid.UUID) error       { return nil }
func (m *mockStore) Close() error                                              { return nil }

type mockHermes struct {
	mock.Mock
	mu       sync.Mutex
	handlers map[string]func(string, []byte)
	events   map[string][]interface{}
}

func newMockHermes() *mockHermes {
	return &mockHermes{
		handlers: make(map[string]func(string, []byte)),
		events:   make(map[string][]interface{}),
	}
}

func (m *mockHermes) Publish(subject string, data interface{}) error {
	m.mu.Lock()
	m.events[subject] = append(m.events[subject], data)
	m.mu.Unlock()
	return m.Called(subject).Error(0)
}

func (m *mockHermes) Subscribe(subject string, handler func(string, []byte)) error {
	m.mu.Lock()
	m.handlers[subject] = handler
	m.mu.Unlock()
	return nil
}

func (m *mockHermes) Close() {}

func (m *mockHermes) published(subject string) []interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.events[subject]
}

func (m *mockHermes) deliver(subject string, data []byte) {
	m.mu.Lock()
	h := m.handlers[subject]
	m.mu.Unlock()
	h(subject, data)
}

func testConfig() *config.Config {
	return &config.Config{
		Economy: economy.DefaultParams(),
		Solver:  config.SolverConfig{MaxIter: 100, Tol: 1e-6, BoundEpsilon: 1e-6},
	}
}

func setupBroker(t *testing.T) (*Broker, *mockStore, *mockHermes, *metrics.Metrics) {
	t.Helper()
	ms := newMockStore()
	mh := newMockHermes()
	mh.On("Publish", mock.Anything).Return(nil)
	m := metrics.New(prometheus.NewRegistry())
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	b := New(ms, mh, m, testConfig(), logger)
	t.Cleanup(b.Stop)
	return b, ms, mh, m
}

func TestHandleSolveRequestDefaults(t *testing.T) {
	b, _, mh, m := setupBroker(t)

	evt := b.HandleSolveRequest(context.Background(), hermes.SolveRequestEvent{RequestID: "r1", Agent: "a"})
	require.Empty(t, evt.Error)
	require.NotNil(t, evt.Result)

	assert.Equal(t, "r1", evt.RequestID)
	assert.Equal(t, economy.DefaultParams(), evt.Params)
	assert.Equal(t, economy.AgentA, evt.Result.Agent)
	assert.True(t, evt.Result.Success)
	assert.InDelta(t, 0.5, evt.Result.Bundle.X1, 1e-4)

	require.Len(t, mh.published(hermes.SubjectDictatorSolved("A")), 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DictatorSolves.WithLabelValues("A", "success", "broker")))
}

func TestHandleSolveRequestParams(t *testing.T) {
	b, _, _, _ := setupBroker(t)

	par := economy.Params{W1A: 0.5, W2A: 0.5, Alpha: 4, Beta: 4}
	evt := b.HandleSolveRequest(context.Background(), hermes.SolveRequestEvent{Agent: "B", Params: &par})
	require.Empty(t, evt.Error)
	assert.NotEmpty(t, evt.RequestID)
	assert.Equal(t, par, evt.Params)
	assert.GreaterOrEqual(t, evt.Result.Slack(), -1e-6)
}

func TestHandleSolveRequestScenario(t *testing.T) {
	b, ms, _, _ := setupBroker(t)

	sc := &store.Scenario{Name: "symmetric", Params: economy.Params{W1A: 0.5, W2A: 0.5, Alpha: 2, Beta: 2}}
	require.NoError(t, ms.CreateScenario(context.Background(), sc))

	evt := b.HandleSolveRequest(context.Background(), hermes.SolveRequestEvent{
		Agent:      "A",
		ScenarioID: sc.ID.String(),
		Params:     &economy.Params{W1A: 0.9, W2A: 0.9, Alpha: 1, Beta: 1},
	})
	require.Empty(t, evt.Error)
	assert.Equal(t, sc.Params, evt.Params)
	assert.Equal(t, sc.ID.String(), evt.ScenarioID)
}

func TestHandleSolveRequestErrors(t *testing.T) {
	b, ms, mh, _ := setupBroker(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		req     hermes.SolveRequestEvent
		subject string
	}{
		{"unknown agent", hermes.SolveRequestEvent{Agent: "C"}, hermes.SubjectDictatorSolved("C")},
		{"empty agent", hermes.SolveRequestEvent{}, hermes.SubjectDictatorSolved("unknown")},
		{"bad scenario id", hermes.SolveRequestEvent{Agent: "A", ScenarioID: "nope"}, hermes.SubjectDictatorSolved("A")},
		{"missing scenario", hermes.SolveRequestEvent{Agent: "A", ScenarioID: uuid.NewString()}, hermes.SubjectDictatorSolved("A")},
		{"invalid params", hermes.SolveRequestEvent{Agent: "B", Params: &economy.Params{W1A: 0, W2A: 0.5, Alpha: 1, Beta: 1}}, hermes.SubjectDictatorSolved("B")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := len(mh.published(tt.subject))
			evt := b.HandleSolveRequest(ctx, tt.req)
			assert.NotEmpty(t, evt.Error)
			assert.Nil(t, evt.Result)
			assert.Len(t, mh.published(tt.subject), before+1)
		})
	}

	t.Run("store failure", func(t *testing.T) {
		ms.err = errors.New("connection reset")
		defer func() { ms.err = nil }()
		evt := b.HandleSolveRequest(ctx, hermes.SolveRequestEvent{Agent: "A", ScenarioID: uuid.NewString()})
		assert.Contains(t, evt.Error, "connection reset")
	})
}

func TestHandleSolveRequestWithoutStore(t *testing.T) {
	mh := newMockHermes()
	mh.On("Publish", mock.Anything).Return(nil)
	b := New(nil, mh, nil, testConfig(), slog.New(slog.NewTextHandler(io.Discard, nil)))

	evt := b.HandleSolveRequest(context.Background(), hermes.SolveRequestEvent{Agent: "A", ScenarioID: uuid.NewString()})
	assert.Equal(t, ErrNoStore.Error(), evt.Error)
}

func TestHandleSolveRequestReplyTo(t *testing.T) {
	b, _, mh, _ := setupBroker(t)

	b.HandleSolveRequest(context.Background(), hermes.SolveRequestEvent{Agent: "A", ReplyTo: "_INBOX.abc"})
	assert.Len(t, mh.published("_INBOX.abc"), 1)
}

func TestSubscriptionDispatchesRequests(t *testing.T) {
	b, _, mh, _ := setupBroker(t)
	require.NoError(t, b.SetupSubscriptions())

	data, _ := json.Marshal(hermes.SolveRequestEvent{RequestID: "nats-1", Agent: "B"})
	mh.deliver(hermes.SubjectSolveRequest, data)
	mh.deliver(hermes.SubjectSolveRequest, []byte("not json"))

	require.Eventually(t, func() bool {
		return len(mh.published(hermes.SubjectDictatorSolved("B"))) == 1
	}, 5*time.Second, 10*time.Millisecond)

	evt := mh.published(hermes.SubjectDictatorSolved("B"))[0].(*hermes.DictatorSolvedEvent)
	assert.Equal(t, "nats-1", evt.RequestID)
	assert.Empty(t, evt.Error)
}

func TestStopDropsNewRequests(t *testing.T) {
	b, _, mh, _ := setupBroker(t)
	require.NoError(t, b.SetupSubscriptions())
	b.Stop()

	data, _ := json.Marshal(hermes.SolveRequestEvent{Agent: "A"})
	mh.deliver(hermes.SubjectSolveRequest, data)
	b.wg.Wait()
	assert.Empty(t, mh.published(hermes.SubjectDictatorSolved("A")))
}

func TestSolvePublishesAndSurvivesPublishFailure(t *testing.T) {
	mh := newMockHermes()
	mh.On("Publish", hermes.SubjectDictatorSolved("A")).Return(errors.New("nats down"))
	m := metrics.New(prometheus.NewRegistry())
	b := New(nil, mh, m, testConfig(), slog.New(slog.NewTextHandler(io.Discard, nil)))

	res, err := b.Solve(economy.AgentA, economy.DefaultParams(), "")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsPublished.WithLabelValues("error")))
	mh.AssertCalled(t, "Publish", hermes.SubjectDictatorSolved("A"))

	_, err = b.Solve(economy.AgentA, economy.Params{W1A: 2}, "")
	assert.ErrorIs(t, err, economy.ErrInvalidEndowment)
}

func TestNilHermes(t *testing.T) {
	b := New(nil, nil, nil, testConfig(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.NoError(t, b.SetupSubscriptions())
	evt := b.HandleSolveRequest(context.Background(), hermes.SolveRequestEvent{Agent: "B"})
	assert.Empty(t, evt.Error)
}
