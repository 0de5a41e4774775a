package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ybryx/robolease/memory"
	"github.com/ybryx/robolease/memory/providers/structured"
)

// Specialist agents the supervisor can route to.
const (
	AgentFinancing   = "financing"
	AgentDealerMatch = "dealer_matching"
	AgentKnowledge   = "knowledge"
	RouteFinish      = "FINISH"
)

var routingPrompt = strings.TrimSpace(`
You are a supervisor agent for a robotics financing platform.

Route the user's request to exactly one of: financing, dealer_matching, knowledge, FINISH.
- financing: prequalification applications, financial scoring, risk assessment, lease terms
- dealer_matching: finding dealers or local partners
- knowledge: robot specs, industries, general questions
- FINISH: the request has been fully handled

Reply with the single routing word and nothing else.
`)

// Specialist handles one class of user request.
type Specialist interface {
	Handle(ctx context.Context, turn Turn) (string, error)
}

// Turn is one user message plus the context the specialist acts within.
type Turn struct {
	UserID    string
	SessionID string
	Message   string
	Snapshot  *memory.ContextSnapshot
	Industry  string
}

// Reply is the supervisor's answer for one turn.
type Reply struct {
	Agent      string              `json:"agent"`
	Message    string              `json:"message"`
	Iterations int                 `json:"iterations"`
	Memory     *memory.WriteResult `json:"memory,omitempty"`
}

// Supervisor routes each user turn to a specialist, loading memory context
// before the turn and persisting the outcome after it.
type Supervisor struct {
	options Options
}

// Respond handles one user turn end to end.
func (s *Supervisor) Respond(ctx context.Context, userID, sessionID, message string) (*Reply, error) {
	if len(strings.TrimSpace(message)) == 0 {
		return nil, errors.New("message is required")
	}

	var snapshot *memory.ContextSnapshot
	if s.options.Memory != nil {
		loaded, err := s.options.Memory.LoadContext(ctx, userID, sessionID)
		if err != nil {
			slog.WarnContext(ctx, "context load failed", "session_id", sessionID, "error", err)
		} else {
			snapshot = loaded
		}
	}

	turn := Turn{
		UserID:    userID,
		SessionID: sessionID,
		Message:   message,
		Snapshot:  snapshot,
		Industry:  detectIndustry(message),
	}

	agent := ""
	reply := ""
	iterations := 0
	var turnErr error

	for iterations < s.options.MaxIterations {
		iterations++

		next := s.route(ctx, turn, agent, iterations)
		if next == RouteFinish {
			break
		}

		specialist, ok := s.options.Specialists[next]
		if !ok {
			slog.WarnContext(ctx, "no specialist registered", "agent", next)
			break
		}

		agent = next
		reply, turnErr = specialist.Handle(ctx, turn)
		if turnErr != nil {
			slog.WarnContext(ctx, "specialist failed", "agent", agent, "error", turnErr)
		}

		// one specialist per turn; the router decides FINISH next round
		break
	}

	if len(agent) == 0 {
		agent = AgentKnowledge
		if specialist, ok := s.options.Specialists[agent]; ok {
			reply, turnErr = specialist.Handle(ctx, turn)
		}
	}

	result := &Reply{
		Agent:      agent,
		Message:    reply,
		Iterations: iterations,
	}

	if s.options.Memory != nil {
		result.Memory = s.persistTurn(ctx, turn, agent, reply, turnErr)
	}

	if turnErr != nil {
		return result, fmt.Errorf("%s specialist: %w", agent, turnErr)
	}

	return result, nil
}

// route asks the router model for the next agent and falls back to keyword
// matching when the model is unavailable or answers off-script.
func (s *Supervisor) route(ctx context.Context, turn Turn, currentAgent string, iteration int) string {
	if len(currentAgent) > 0 {
		return RouteFinish
	}

	if s.options.Router != nil {
		prompt := fmt.Sprintf("%s\n\nPrevious agent: %s\nIteration: %d/%d\nUser: %s",
			routingPrompt, orNone(currentAgent), iteration, s.options.MaxIterations, turn.Message)

		decision, err := s.options.Router.Generate(ctx, prompt)
		if err == nil {
			normalized := strings.ToLower(strings.TrimSpace(decision))
			switch normalized {
			case AgentFinancing, AgentDealerMatch, AgentKnowledge:
				return normalized
			case "finish":
				return RouteFinish
			}
			slog.WarnContext(ctx, "invalid routing decision", "decision", decision)
		} else {
			slog.WarnContext(ctx, "router unavailable", "error", err)
		}
	}

	return routeByKeywords(turn.Message)
}

func (s *Supervisor) persistTurn(ctx context.Context, turn Turn, agent, reply string, turnErr error) *memory.WriteResult {
	payload := map[string]any{
		"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		"agent":      agent,
		"session_id": turn.SessionID,
		"type":       "agent_execution_result",
		"content": map[string]any{
			"role":    "assistant",
			"content": reply,
			"execution_summary": map[string]any{
				"completed": turnErr == nil,
				"error":     errString(turnErr),
			},
		},
	}

	tags := []string{agent}
	if len(turn.Industry) > 0 {
		tags = append([]string{turn.Industry}, tags...)
	}

	written, err := s.options.Memory.WriteMemory(
		ctx,
		turn.UserID,
		turn.SessionID,
		payload,
		memory.WithMemoryKind(MemoryKindFor(agent)),
		memory.WithTags(tags...),
	)
	if err != nil {
		slog.WarnContext(ctx, "turn memory write failed", "agent", agent, "error", err)
		return nil
	}

	status := "completed"
	var errorDetails map[string]any
	if turnErr != nil {
		status = "failed"
		errorDetails = map[string]any{"error": turnErr.Error()}
	}

	if _, err := s.options.Memory.LogAgentExecution(ctx, structured.AgentExecution{
		UserID:       turn.UserID,
		AgentName:    agent,
		ExecutionID:  uuid.New().String(),
		InputPayload: map[string]any{"message": turn.Message},
		OutputPayload: map[string]any{
			"reply": reply,
		},
		Status:       status,
		ErrorDetails: errorDetails,
	}); err != nil {
		slog.WarnContext(ctx, "execution log failed", "agent", agent, "error", err)
	}

	return written
}

// MemoryKindFor maps an agent to the memory kind its turns are stored under.
// Financing turns are concrete episodes; knowledge turns are facts.
func MemoryKindFor(agent string) string {
	switch agent {
	case AgentFinancing:
		return memory.KindEpisodic
	case AgentKnowledge:
		return memory.KindSemantic
	default:
		return memory.KindLongTerm
	}
}

func routeByKeywords(message string) string {
	lower := strings.ToLower(message)

	for _, kw := range []string{"financ", "prequal", "lease term", "credit", "apply", "approval", "score"} {
		if strings.Contains(lower, kw) {
			return AgentFinancing
		}
	}

	for _, kw := range []string{"dealer", "distributor", "near me", "local partner", "zip"} {
		if strings.Contains(lower, kw) {
			return AgentDealerMatch
		}
	}

	return AgentKnowledge
}

func detectIndustry(message string) string {
	lower := strings.ToLower(message)
	for _, industry := range []string{"logistics", "agriculture", "manufacturing", "delivery", "construction", "retail"} {
		if strings.Contains(lower, industry) {
			return industry
		}
	}
	return ""
}

func orNone(s string) string {
	if len(s) == 0 {
		return "None"
	}
	return s
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func NewSupervisor(opts ...Option) *Supervisor {
	options := NewOptions(opts...)

	return &Supervisor{
		options: options,
	}
}
