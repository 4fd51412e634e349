// Package chat runs the interactive orchestration loop: it drives a
// bounded multi-turn exchange with the model for one identity, routes
// every tool call through the authorization policy, and terminates on a
// final answer, an exhausted turn budget, or a fatal decode error.
package chat

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/querydesk/querydesk/pkg/agent"
	"github.com/querydesk/querydesk/pkg/authz"
	"github.com/querydesk/querydesk/pkg/ticket"
)

// maxTurns bounds the interactive exchange.
const maxTurns = 5

const (
	decodeErrorReply = "I apologize, but I encountered a technical error while processing that request. Please try rephrasing."
	exhaustedReply   = "I encountered an error processing your request."
)

// Config assembles an Assistant.
type Config struct {
	Identity ticket.Identity
	Store    ticket.Store
	Policy   *authz.Policy
	Provider agent.Provider
	Model    string
	Logger   zerolog.Logger
}

// Assistant is the interactive chat agent for one identity. The
// identity is immutable for the assistant's lifetime; a different user
// gets a fresh Assistant so tool visibility is never reused across
// identities.
type Assistant struct {
	identity ticket.Identity
	store    ticket.Store
	policy   *authz.Policy
	provider agent.Provider
	registry *agent.Registry
	model    string
	logger   zerolog.Logger
}

// New creates an Assistant.
func New(cfg Config) (*Assistant, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if cfg.Provider == nil {
		return nil, fmt.Errorf("provider is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}
	if cfg.Policy == nil {
		cfg.Policy = authz.New()
	}

	registry := agent.NewRegistry()
	if err := registerTools(registry); err != nil {
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}

	return &Assistant{
		identity: cfg.Identity,
		store:    cfg.Store,
		policy:   cfg.Policy,
		provider: cfg.Provider,
		registry: registry,
		model:    cfg.Model,
		logger:   cfg.Logger.With().Str("component", "chat").Str("user", cfg.Identity.Name).Logger(),
	}, nil
}

// Run drives one user message to completion. It returns the final
// reply, the updated transcript (excluding the system instruction), and
// the total token usage reported across turns. Role-boundary
// violations surface as polite tool results, never as errors.
func (a *Assistant) Run(ctx context.Context, userMessage string, prior []agent.Message) (string, []agent.Message, int, error) {
	teams, err := a.teamList(ctx)
	if err != nil {
		return "", prior, 0, err
	}
	system := systemPrompt(a.identity, teams)

	transcript := make([]agent.Message, 0, len(prior)+4)
	transcript = append(transcript, prior...)
	transcript = append(transcript, agent.UserMessage(userMessage))

	handlers := a.handlers()
	totalTokens := 0

	for turn := 0; turn < maxTurns; turn++ {
		resp, err := a.provider.Generate(ctx, agent.Request{
			Model:    a.model,
			System:   system,
			Messages: transcript,
			Tools:    a.registry.Specs(a.identity.Role),
		})
		if err != nil {
			return "", transcript, totalTokens, fmt.Errorf("model call failed: %w", err)
		}
		totalTokens += resp.Usage.Total()

		transcript = append(transcript, agent.Message{
			Role:      agent.RoleAssistant,
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})

		if len(resp.ToolCalls) == 0 {
			a.logger.Info().Int("turns", turn+1).Int("tokens", totalTokens).Msg("Chat run completed")
			return resp.Content, transcript, totalTokens, nil
		}

		for _, call := range resp.ToolCalls {
			result, err := a.dispatch(ctx, handlers, call)
			if err != nil {
				if errors.Is(err, agent.ErrMalformedToolArgs) {
					a.logger.Error().Err(err).Str("tool", call.Name).Msg("Model produced undecodable tool arguments")
					return decodeErrorReply, transcript, totalTokens, nil
				}
				return "", transcript, totalTokens, err
			}
			transcript = append(transcript, agent.ToolResultMessage(call, result))
		}
	}

	a.logger.Warn().Int("tokens", totalTokens).Msg("Chat run exhausted turn budget")
	return exhaustedReply, transcript, totalTokens, nil
}

// dispatch decodes, validates, and executes one tool call. Schema
// violations and handler failures come back as tool-result text so the
// model can recover; only an undecodable payload is fatal.
func (a *Assistant) dispatch(ctx context.Context, handlers map[string]toolHandler, call agent.ToolCall) (string, error) {
	handler, ok := handlers[call.Name]
	if !ok || !a.visible(call.Name) {
		a.logger.Warn().Str("tool", call.Name).Msg("Model requested unavailable tool")
		return fmt.Sprintf("Error: tool %q is not available.", call.Name), nil
	}

	args, err := call.DecodeArgs()
	if err != nil {
		return "", err
	}

	if err := a.registry.Validate(call.Name, args); err != nil {
		a.logger.Debug().Err(err).Str("tool", call.Name).Msg("Tool arguments rejected by schema")
		return fmt.Sprintf("Error: %v", err), nil
	}

	result, err := handler(ctx, args)
	if err != nil {
		a.logger.Error().Err(err).Str("tool", call.Name).Msg("Tool execution failed")
		return fmt.Sprintf("Error: %v", err), nil
	}
	return result, nil
}

// visible reports whether the tool is offered to this identity's role.
func (a *Assistant) visible(name string) bool {
	for _, def := range a.registry.ForRole(a.identity.Role) {
		if def.Name == name {
			return true
		}
	}
	return false
}

// teamList collects the distinct team names in the system for the
// system prompt.
func (a *Assistant) teamList(ctx context.Context) ([]string, error) {
	tickets, err := a.store.FetchTickets(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch teams: %w", err)
	}
	seen := map[string]bool{}
	teams := []string{}
	for _, t := range tickets {
		name := strings.TrimSpace(t.Team)
		if name == "" || seen[strings.ToLower(name)] {
			continue
		}
		seen[strings.ToLower(name)] = true
		teams = append(teams, name)
	}
	sort.Strings(teams)
	return teams, nil
}
