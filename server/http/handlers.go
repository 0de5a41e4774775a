package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/ybryx/robolease/catalog"
	"github.com/ybryx/robolease/memory"
	"github.com/ybryx/robolease/prequal"
	"github.com/ybryx/robolease/supervisor"
)

// envelope is the response shape every endpoint returns.
type envelope struct {
	Success bool       `json:"success"`
	Data    any        `json:"data"`
	Error   *errorBody `json:"error"`
}

type errorBody struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Deps are the services the handlers serve.
type Deps struct {
	Catalog    *catalog.Service
	Prequal    *prequal.Service
	Supervisor *supervisor.Supervisor
	Memory     memory.Manager
}

type handlers struct {
	deps Deps
}

// NewRouter mounts all API routes.
func NewRouter(deps Deps) *mux.Router {
	h := &handlers{deps: deps}

	router := mux.NewRouter()
	router.HandleFunc("/health", h.health).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/robots", h.listRobots).Methods(http.MethodGet)
	api.HandleFunc("/robots/{id}", h.getRobot).Methods(http.MethodGet)
	api.HandleFunc("/dealers", h.listDealers).Methods(http.MethodGet)
	api.HandleFunc("/dealers/match", h.matchDealers).Methods(http.MethodPost)
	api.HandleFunc("/prequalifications", h.submitPrequalification).Methods(http.MethodPost)
	api.HandleFunc("/prequalifications/{id}", h.getPrequalification).Methods(http.MethodGet)
	api.HandleFunc("/chat", h.chat).Methods(http.MethodPost)
	api.HandleFunc("/memory/recall", h.recallMemory).Methods(http.MethodPost)
	api.HandleFunc("/memory/decay", h.decayMemory).Methods(http.MethodPost)

	return router
}

func (h *handlers) health(w http.ResponseWriter, _ *http.Request) {
	writeSuccess(w, map[string]string{"status": "ok"})
}

func (h *handlers) listRobots(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	robots, pagination := h.deps.Catalog.ListRobots(catalog.RobotQuery{
		Search:   q.Get("search"),
		Category: q.Get("category"),
		UseCase:  q.Get("use_case"),
		Page:     intParam(q.Get("page"), 1),
		Limit:    intParam(q.Get("limit"), 20),
	})

	writeSuccess(w, map[string]any{
		"robots":     robots,
		"pagination": pagination,
	})
}

func (h *handlers) getRobot(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	robot, err := h.deps.Catalog.GetRobot(id)
	if errors.Is(err, catalog.ErrRobotNotFound) {
		writeError(w, http.StatusNotFound, "Robot not found", "not_found")
		return
	}

	writeSuccess(w, robot)
}

func (h *handlers) listDealers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	dealers, pagination := h.deps.Catalog.ListDealers(catalog.DealerQuery{
		ZipCode:   q.Get("zip_code"),
		Specialty: q.Get("specialty"),
		Page:      intParam(q.Get("page"), 1),
		Limit:     intParam(q.Get("limit"), 20),
	})

	writeSuccess(w, map[string]any{
		"dealers":    dealers,
		"pagination": pagination,
	})
}

func (h *handlers) matchDealers(w http.ResponseWriter, r *http.Request) {
	var req catalog.MatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", "bad_request")
		return
	}
	if len(req.ZipCode) == 0 {
		writeError(w, http.StatusBadRequest, "zip_code is required", "bad_request")
		return
	}

	matched := h.deps.Catalog.MatchDealers(req)

	writeSuccess(w, map[string]any{
		"matched_dealers":   matched,
		"notification_sent": len(matched) > 0,
	})
}

func (h *handlers) submitPrequalification(w http.ResponseWriter, r *http.Request) {
	var req prequal.ApplicationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", "bad_request")
		return
	}

	app, err := h.deps.Prequal.Submit(req)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error(), "validation_failed")
		return
	}

	writeSuccess(w, map[string]any{
		"application_id":          app.ID,
		"application_number":      app.ApplicationNumber,
		"status":                  app.Status,
		"estimated_decision_date": app.EstimatedDecisionDate,
		"agent_analysis":          app.Score,
	})
}

func (h *handlers) getPrequalification(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	app, err := h.deps.Prequal.Get(id)
	if errors.Is(err, prequal.ErrApplicationNotFound) {
		writeError(w, http.StatusNotFound, "Prequalification application not found", "not_found")
		return
	}

	writeSuccess(w, app)
}

type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
}

func (h *handlers) chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", "bad_request")
		return
	}
	if len(req.Message) == 0 {
		writeError(w, http.StatusBadRequest, "message is required", "bad_request")
		return
	}

	if len(req.SessionID) == 0 {
		req.SessionID = uuid.New().String()
	}
	if len(req.UserID) == 0 {
		req.UserID = "anonymous"
	}

	reply, err := h.deps.Supervisor.Respond(r.Context(), req.UserID, req.SessionID, req.Message)
	if err != nil && reply == nil {
		writeError(w, http.StatusInternalServerError, "Chat processing failed", "internal_error")
		return
	}

	writeSuccess(w, map[string]any{
		"session_id": req.SessionID,
		"agent":      reply.Agent,
		"response":   reply.Message,
		"memory":     reply.Memory,
	})
}

type recallRequest struct {
	UserID    string   `json:"user_id"`
	Query     string   `json:"query"`
	SessionID string   `json:"session_id"`
	AgentName string   `json:"agent_name"`
	Tags      []string `json:"tags"`
	Limit     int      `json:"limit"`
}

func (h *handlers) recallMemory(w http.ResponseWriter, r *http.Request) {
	var req recallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", "bad_request")
		return
	}
	if len(req.UserID) == 0 {
		writeError(w, http.StatusBadRequest, "user_id is required", "bad_request")
		return
	}

	opts := []memory.RecallMemoryOption{}
	if len(req.SessionID) > 0 {
		opts = append(opts, memory.WithRecallSessionID(req.SessionID))
	}
	if len(req.AgentName) > 0 {
		opts = append(opts, memory.WithRecallAgentName(req.AgentName))
	}
	if len(req.Tags) > 0 {
		opts = append(opts, memory.WithRecallTags(req.Tags...))
	}
	if req.Limit > 0 {
		opts = append(opts, memory.WithRecallLimit(req.Limit))
	}

	recalled, err := h.deps.Memory.RecallMemory(r.Context(), req.UserID, req.Query, opts...)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Recall failed", "internal_error")
		return
	}

	writeSuccess(w, map[string]any{
		"memories": recalled,
		"count":    len(recalled),
	})
}

type decayRequest struct {
	UserID        string `json:"user_id"`
	ThresholdDays int    `json:"threshold_days"`
	MemoryType    string `json:"memory_type"`
}

func (h *handlers) decayMemory(w http.ResponseWriter, r *http.Request) {
	var req decayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", "bad_request")
		return
	}
	if len(req.UserID) == 0 {
		writeError(w, http.StatusBadRequest, "user_id is required", "bad_request")
		return
	}

	opts := []memory.DecayMemoryOption{}
	if req.ThresholdDays > 0 {
		opts = append(opts, memory.WithThresholdDays(req.ThresholdDays))
	}
	if len(req.MemoryType) > 0 {
		opts = append(opts, memory.WithDecayMemoryKind(req.MemoryType))
	}

	result, err := h.deps.Memory.DecayMemory(r.Context(), req.UserID, opts...)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Decay failed", "internal_error")
		return
	}

	writeSuccess(w, result)
}

func writeSuccess(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, envelope{Success: false, Error: &errorBody{Message: message, Code: code}})
}

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("response encoding failed", "error", err)
	}
}

func intParam(raw string, fallback int) int {
	if len(raw) == 0 {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
