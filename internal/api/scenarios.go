package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Edgeworth/internal/broker"
	"github.com/MikeSquared-Agency/Edgeworth/internal/economy"
	"github.com/MikeSquared-Agency/Edgeworth/internal/hermes"
	"github.com/MikeSquared-Agency/Edgeworth/internal/store"
)

// ScenariosHandler manages stored parameter sets. A nil store answers 503.
type ScenariosHandler struct {
	store  store.Store
	broker *broker.Broker
	econ   *EconomyHandler
}

func NewScenariosHandler(s store.Store, b *broker.Broker, econ *EconomyHandler) *ScenariosHandler {
	return &ScenariosHandler{store: s, broker: b, econ: econ}
}

type scenarioRequest struct {
	Name        *string      `json:"name,omitempty"`
	Description *string      `json:"description,omitempty"`
	Params      *ParamsInput `json:"params,omitempty"`
}

func (h *ScenariosHandler) available(w http.ResponseWriter) bool {
	if h.store == nil {
		writeError(w, http.StatusServiceUnavailable, "scenario store not configured")
		return false
	}
	return true
}

func (h *ScenariosHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}
	var req scenarioRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Name == nil || strings.TrimSpace(*req.Name) == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	sc := &store.Scenario{
		Name:      strings.TrimSpace(*req.Name),
		Params:    req.Params.apply(h.econ.cfg.Economy),
		CreatedBy: r.Header.Get(clientIDHeader),
	}
	if req.Description != nil {
		sc.Description = *req.Description
	}
	if err := sc.Params.Validate(); err != nil {
		writeDomainError(w, err)
		return
	}
	if err := h.store.CreateScenario(r.Context(), sc); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.publish(hermes.SubjectScenarioCreated(sc.ID.String()), sc, r)
	writeJSON(w, http.StatusCreated, sc)
}

func (h *ScenariosHandler) List(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}
	q := r.URL.Query()
	filter := store.ScenarioFilter{
		Name:      q.Get("name"),
		CreatedBy: q.Get("created_by"),
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		filter.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid offset")
			return
		}
		filter.Offset = n
	}

	scenarios, err := h.store.ListScenarios(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if scenarios == nil {
		scenarios = []*store.Scenario{}
	}
	writeJSON(w, http.StatusOK, scenarios)
}

func (h *ScenariosHandler) Get(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.load(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sc)
}

func (h *ScenariosHandler) Update(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.load(w, r)
	if !ok {
		return
	}
	var req scenarioRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			writeError(w, http.StatusBadRequest, "name must not be empty")
			return
		}
		sc.Name = name
	}
	if req.Description != nil {
		sc.Description = *req.Description
	}
	sc.Params = req.Params.apply(sc.Params)
	if err := sc.Params.Validate(); err != nil {
		writeDomainError(w, err)
		return
	}

	if err := h.store.UpdateScenario(r.Context(), sc); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "scenario not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.publish(hermes.SubjectScenarioUpdated(sc.ID.String()), sc, r)
	writeJSON(w, http.StatusOK, sc)
}

func (h *ScenariosHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid scenario id")
		return
	}
	if err := h.store.DeleteScenario(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "scenario not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.broker.Publish(hermes.SubjectScenarioDeleted(id.String()), hermes.ScenarioEvent{
		ScenarioID: id.String(),
		ClientID:   r.Header.Get(clientIDHeader),
	})
	w.WriteHeader(http.StatusNoContent)
}

// Dictator solves the dictator problem with the stored parameters.
func (h *ScenariosHandler) Dictator(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.load(w, r)
	if !ok {
		return
	}
	agent, err := economy.ParseAgent(chi.URLParam(r, "agent"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	h.econ.solve(w, agent, sc.Params, sc.ID.String())
}

// Edgeworth renders the stored scenario, titled with its name.
func (h *ScenariosHandler) Edgeworth(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.load(w, r)
	if !ok {
		return
	}
	req := edgeworthRequest{Title: sc.Name}
	if v := r.URL.Query().Get("dictators"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid dictators flag")
			return
		}
		req.Dictators = &b
	}
	h.econ.render(w, r, sc.Params, req)
}

func (h *ScenariosHandler) load(w http.ResponseWriter, r *http.Request) (*store.Scenario, bool) {
	if !h.available(w) {
		return nil, false
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid scenario id")
		return nil, false
	}
	sc, err := h.store.GetScenario(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	if sc == nil {
		writeError(w, http.StatusNotFound, "scenario not found")
		return nil, false
	}
	return sc, true
}

func (h *ScenariosHandler) publish(subject string, sc *store.Scenario, r *http.Request) {
	h.broker.Publish(subject, hermes.ScenarioEvent{
		ScenarioID: sc.ID.String(),
		Name:       sc.Name,
		Params:     sc.Params,
		ClientID:   r.Header.Get(clientIDHeader),
	})
}
