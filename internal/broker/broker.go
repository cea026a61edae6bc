package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Edgeworth/internal/config"
	"github.com/MikeSquared-Agency/Edgeworth/internal/economy"
	"github.com/MikeSquared-Agency/Edgeworth/internal/hermes"
	"github.com/MikeSquared-Agency/Edgeworth/internal/metrics"
	"github.com/MikeSquared-Agency/Edgeworth/internal/store"
)

var (
	ErrNoStore         = errors.New("scenario store unavailable")
	ErrScenarioMissing = errors.New("scenario not found")
)

// Broker runs dictator solves for the API and for solve requests arriving
// over hermes. Every solve is recorded in metrics and announced as a
// DictatorSolvedEvent.
type Broker struct {
	store   store.Store
	hermes  hermes.Client
	metrics *metrics.Metrics
	cfg     *config.Config
	logger  *slog.Logger

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

func New(s store.Store, h hermes.Client, m *metrics.Metrics, cfg *config.Config, logger *slog.Logger) *Broker {
	return &Broker{
		store:   s,
		hermes:  h,
		metrics: m,
		cfg:     cfg,
		logger:  logger.With("component", "broker"),
		stopCh:  make(chan struct{}),
	}
}

// Stop rejects new requests and waits for in-flight ones.
func (b *Broker) Stop() {
	b.stopOnce.Do(func() { close(b.stopCh) })
	b.wg.Wait()
}

func (b *Broker) stopped() bool {
	select {
	case <-b.stopCh:
		return true
	default:
		return false
	}
}

// SetupSubscriptions registers the solve request consumer.
func (b *Broker) SetupSubscriptions() error {
	if b.hermes == nil {
		return nil
	}
	return b.hermes.Subscribe(hermes.SubjectSolveRequest, func(_ string, data []byte) {
		var req hermes.SolveRequestEvent
		if err := json.Unmarshal(data, &req); err != nil {
			b.logger.Warn("invalid solve request event", "error", err)
			return
		}
		if b.stopped() {
			b.logger.Warn("dropping solve request after stop", "request_id", req.RequestID)
			return
		}
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			b.HandleSolveRequest(context.Background(), req)
		}()
	})
}

// HandleSolveRequest resolves parameters, solves and publishes the outcome.
// The returned event is the one published.
func (b *Broker) HandleSolveRequest(ctx context.Context, req hermes.SolveRequestEvent) *hermes.DictatorSolvedEvent {
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	evt := &hermes.DictatorSolvedEvent{
		RequestID:  req.RequestID,
		ScenarioID: req.ScenarioID,
		Timestamp:  time.Now().UTC(),
	}
	subjectAgent := req.Agent

	agent, err := economy.ParseAgent(req.Agent)
	if err == nil {
		subjectAgent = string(agent)
		evt.Params, err = b.resolveParams(ctx, req)
	}
	if err == nil {
		start := time.Now()
		evt.Result, err = b.solve(agent, evt.Params, "broker")
		evt.DurationMs = time.Since(start).Milliseconds()
	}
	if err != nil {
		evt.Error = err.Error()
		b.logger.Warn("solve request failed", "request_id", req.RequestID, "agent", req.Agent, "error", err)
	}
	if subjectAgent == "" {
		subjectAgent = "unknown"
	}

	b.publish(hermes.SubjectDictatorSolved(subjectAgent), evt)
	if req.ReplyTo != "" {
		b.publish(req.ReplyTo, evt)
	}
	return evt
}

// Solve runs one dictator solve for the API and announces it.
func (b *Broker) Solve(agent economy.Agent, par economy.Params, scenarioID string) (*economy.DictatorResult, error) {
	start := time.Now()
	res, err := b.solve(agent, par, "api")
	if err != nil {
		return nil, err
	}
	b.publish(hermes.SubjectDictatorSolved(string(agent)), &hermes.DictatorSolvedEvent{
		ScenarioID: scenarioID,
		Params:     par,
		Result:     res,
		DurationMs: time.Since(start).Milliseconds(),
		Timestamp:  time.Now().UTC(),
	})
	return res, nil
}

func (b *Broker) solve(agent economy.Agent, par economy.Params, source string) (*economy.DictatorResult, error) {
	m, err := economy.NewQuasiLinear(par)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	res, err := m.SolveDictator(agent, b.cfg.SolverOptions())
	if err != nil {
		return nil, err
	}
	b.metrics.ObserveSolve(string(agent), res.Status.Label(), source, res.Iterations, time.Since(start))
	b.logger.Debug("dictator solved",
		"agent", agent,
		"success", res.Success,
		"iterations", res.Iterations,
		"x1", res.Bundle.X1,
		"x2", res.Bundle.X2,
	)
	return res, nil
}

func (b *Broker) resolveParams(ctx context.Context, req hermes.SolveRequestEvent) (economy.Params, error) {
	if req.ScenarioID != "" {
		id, err := uuid.Parse(req.ScenarioID)
		if err != nil {
			return economy.Params{}, fmt.Errorf("invalid scenario id %q: %w", req.ScenarioID, err)
		}
		if b.store == nil {
			return economy.Params{}, ErrNoStore
		}
		sc, err := b.store.GetScenario(ctx, id)
		if err != nil {
			return economy.Params{}, fmt.Errorf("load scenario: %w", err)
		}
		if sc == nil {
			return economy.Params{}, fmt.Errorf("%w: %s", ErrScenarioMissing, id)
		}
		return sc.Params, nil
	}
	if req.Params != nil {
		return *req.Params, nil
	}
	return b.cfg.Economy, nil
}

// Publish sends an event through hermes when connected. Failures are logged
// and counted, never returned.
func (b *Broker) Publish(subject string, data interface{}) {
	b.publish(subject, data)
}

func (b *Broker) publish(subject string, data interface{}) {
	if b.hermes == nil {
		return
	}
	err := b.hermes.Publish(subject, data)
	b.metrics.ObservePublish(err)
	if err != nil {
		b.logger.Warn("failed to publish event", "subject", subject, "error", err)
	}
}
