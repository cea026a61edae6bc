package api

import (
	"bytes"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"gonum.org/v1/plot/vg"

	"github.com/MikeSquared-Agency/Edgeworth/internal/broker"
	"github.com/MikeSquared-Agency/Edgeworth/internal/config"
	"github.com/MikeSquared-Agency/Edgeworth/internal/economy"
	"github.com/MikeSquared-Agency/Edgeworth/internal/hermes"
	"github.com/MikeSquared-Agency/Edgeworth/internal/metrics"
	"github.com/MikeSquared-Agency/Edgeworth/internal/render"
)

// ParamsInput overrides individual economy parameters. Missing fields keep
// the configured defaults.
type ParamsInput struct {
	W1A   *float64 `json:"w1A,omitempty"`
	W2A   *float64 `json:"w2A,omitempty"`
	Alpha *float64 `json:"alpha,omitempty"`
	Beta  *float64 `json:"beta,omitempty"`
}

func (p *ParamsInput) apply(base economy.Params) economy.Params {
	if p == nil {
		return base
	}
	if p.W1A != nil {
		base.W1A = *p.W1A
	}
	if p.W2A != nil {
		base.W2A = *p.W2A
	}
	if p.Alpha != nil {
		base.Alpha = *p.Alpha
	}
	if p.Beta != nil {
		base.Beta = *p.Beta
	}
	return base
}

type EconomyHandler struct {
	broker  *broker.Broker
	metrics *metrics.Metrics
	cfg     *config.Config
}

func NewEconomyHandler(b *broker.Broker, m *metrics.Metrics, cfg *config.Config) *EconomyHandler {
	return &EconomyHandler{broker: b, metrics: m, cfg: cfg}
}

func (h *EconomyHandler) model(in *ParamsInput) (*economy.Model, error) {
	return economy.NewQuasiLinear(in.apply(h.cfg.Economy))
}

type utilityRequest struct {
	Params *ParamsInput    `json:"params,omitempty"`
	Agent  string          `json:"agent"`
	Bundle *economy.Bundle `json:"bundle,omitempty"`
}

type utilityResponse struct {
	Agent   economy.Agent  `json:"agent"`
	Bundle  economy.Bundle `json:"bundle"`
	Utility float64        `json:"utility"`
}

// Utility evaluates one agent's utility at its own bundle, defaulting to the
// endowment.
func (h *EconomyHandler) Utility(w http.ResponseWriter, r *http.Request) {
	var req utilityRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	m, err := h.model(req.Params)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	agent, err := economy.ParseAgent(req.Agent)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	x := endowment(m.Params(), agent)
	if req.Bundle != nil {
		x = *req.Bundle
	}
	u := m.Utility(agent, x)
	if !finite(u) {
		writeError(w, http.StatusBadRequest, "utility undefined at bundle")
		return
	}
	writeJSON(w, http.StatusOK, utilityResponse{Agent: agent, Bundle: x, Utility: u})
}

type indifferenceRequest struct {
	Params  *ParamsInput    `json:"params,omitempty"`
	Agent   string          `json:"agent"`
	Through *economy.Bundle `json:"through,omitempty"`
	Grid    *economy.Grid   `json:"grid,omitempty"`
}

// Indifference samples an agent's level set through a point in its own
// coordinates.
func (h *EconomyHandler) Indifference(w http.ResponseWriter, r *http.Request) {
	var req indifferenceRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	m, err := h.model(req.Params)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	agent, err := economy.ParseAgent(req.Agent)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	p := endowment(m.Params(), agent)
	if req.Through != nil {
		p = *req.Through
	}

	var curve *economy.Curve
	if agent == economy.AgentA {
		curve, err = m.IndifferenceCurveA(p.X1, p.X2, gridOrDefault(req.Grid))
	} else {
		curve, err = m.IndifferenceCurveB(p.X1, p.X2, gridOrDefault(req.Grid))
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, curve)
}

type demandRequest struct {
	Params *ParamsInput `json:"params,omitempty"`
	P1     float64      `json:"p1"`
}

// Demand returns both demands and the market clearing errors at p1.
func (h *EconomyHandler) Demand(w http.ResponseWriter, r *http.Request) {
	var req demandRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	m, err := h.model(req.Params)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	mc, err := m.CheckMarketClearing(req.P1)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mc)
}

type equilibriumRequest struct {
	Params *ParamsInput `json:"params,omitempty"`
	economy.EquilibriumOptions
}

func (h *EconomyHandler) Equilibrium(w http.ResponseWriter, r *http.Request) {
	var req equilibriumRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	m, err := h.model(req.Params)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	eq, err := m.FindEquilibrium(req.EquilibriumOptions)
	h.metrics.ObserveEquilibrium(eq != nil && eq.Converged, err)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	h.broker.Publish(hermes.SubjectEquilibriumFound, hermes.EquilibriumFoundEvent{
		Params:      m.Params(),
		Equilibrium: eq,
		Timestamp:   time.Now().UTC(),
	})
	writeJSON(w, http.StatusOK, eq)
}

type improvementRequest struct {
	Params *ParamsInput  `json:"params,omitempty"`
	Grid   *economy.Grid `json:"grid,omitempty"`
}

type improvementResponse struct {
	*economy.ImprovementSet
	Count int `json:"count"`
}

func (h *EconomyHandler) ImprovementSet(w http.ResponseWriter, r *http.Request) {
	var req improvementRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	m, err := h.model(req.Params)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	set, err := m.ImprovementSet(gridOrDefault(req.Grid))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, improvementResponse{ImprovementSet: set, Count: set.Len()})
}

type contractCurveResponse struct {
	ContractCurve *economy.ContractCurve `json:"contract_curve"`
	Core          *economy.ContractCurve `json:"core"`
}

// ContractCurve returns the efficient allocations and the part of them inside
// the lens.
func (h *EconomyHandler) ContractCurve(w http.ResponseWriter, r *http.Request) {
	var req improvementRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	m, err := h.model(req.Params)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	grid := gridOrDefault(req.Grid)
	cc, err := m.ContractCurve(grid)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	core, err := m.Core(grid)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, contractCurveResponse{ContractCurve: cc, Core: core})
}

type paramsRequest struct {
	Params *ParamsInput `json:"params,omitempty"`
}

// Dictator solves the dictator problem for the agent in the URL.
func (h *EconomyHandler) Dictator(w http.ResponseWriter, r *http.Request) {
	var req paramsRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	agent, err := economy.ParseAgent(chi.URLParam(r, "agent"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	h.solve(w, agent, req.Params.apply(h.cfg.Economy), "")
}

func (h *EconomyHandler) solve(w http.ResponseWriter, agent economy.Agent, par economy.Params, scenarioID string) {
	res, err := h.broker.Solve(agent, par, scenarioID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type edgeworthRequest struct {
	Params    *ParamsInput  `json:"params,omitempty"`
	Grid      *economy.Grid `json:"grid,omitempty"`
	Dictators *bool         `json:"dictators,omitempty"`
	Title     string        `json:"title,omitempty"`
}

// Edgeworth renders the box. The format comes from ?format=, defaulting to
// the configured one.
func (h *EconomyHandler) Edgeworth(w http.ResponseWriter, r *http.Request) {
	var req edgeworthRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.render(w, r, req.Params.apply(h.cfg.Economy), req)
}

func (h *EconomyHandler) render(w http.ResponseWriter, r *http.Request, par economy.Params, req edgeworthRequest) {
	format := strings.ToLower(r.URL.Query().Get("format"))
	if format == "" {
		format = h.cfg.Render.Format
	}
	if !render.ValidFormat(format) {
		writeError(w, http.StatusBadRequest, "format must be one of "+strings.Join(render.Formats, ", "))
		return
	}
	m, err := economy.NewQuasiLinear(par)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	opts := render.DefaultOptions()
	opts.Solver = h.cfg.SolverOptions()
	opts.Grid = gridOrDefault(req.Grid)
	if req.Dictators != nil {
		opts.Dictators = *req.Dictators
	}
	if req.Title != "" {
		opts.Title = req.Title
	}
	fig, err := render.EdgeworthBox(m, opts)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := fig.Render(&buf, format, inches(h.cfg.Render.WidthInches), inches(h.cfg.Render.HeightInches)); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.metrics.ObserveRender(format)

	w.Header().Set("Content-Type", render.ContentType(format))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func endowment(par economy.Params, agent economy.Agent) economy.Bundle {
	if agent == economy.AgentB {
		return par.EndowmentB()
	}
	return par.EndowmentA()
}

func gridOrDefault(g *economy.Grid) economy.Grid {
	if g == nil {
		return economy.DefaultGrid()
	}
	return *g
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

func inches(v float64) vg.Length {
	if v <= 0 {
		v = 6
	}
	return vg.Length(v) * vg.Inch
}
