// Package transport defines the wire shapes that carry commands and
// their responses between a UI process and the worker, independent of
// whether they travel over a websocket, an in-process channel, or a
// plain HTTP request.
package transport

import "encoding/json"

// CommandEnvelope is one inbound message: a command name, its
// arguments as raw JSON (decoded per-command by whoever owns the
// dispatch table), and the UI-assigned query id it must be answered
// under.
type CommandEnvelope struct {
	QueryID string          `json:"queryId"`
	Command string          `json:"command"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ResponseEnvelope is one outbound message answering a command, or
// carrying an out-of-band event. Exactly one of Result/Error is set
// for a command response; for an event, Event is set and QueryID is
// empty.
type ResponseEnvelope struct {
	Type          string          `json:"type"` // "commandResult", "commandFailed", or "eventPublish"
	QueryID       string          `json:"queryId,omitempty"`
	CorrelationID string          `json:"correlationId,omitempty"`
	Command       string          `json:"command,omitempty"`
	Result        json.RawMessage `json:"result,omitempty"`
	Error         string          `json:"error,omitempty"`

	Event   string          `json:"event,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

const (
	TypeCommandResult = "commandResult"
	TypeCommandFailed = "commandFailed"
	TypeEventPublish  = "eventPublish"
)

// NewCommandResult builds a success ResponseEnvelope, marshalling
// result into its Result field.
func NewCommandResult(queryID, correlationID, command string, result any) (*ResponseEnvelope, error) {
	raw, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}
	return &ResponseEnvelope{
		Type:          TypeCommandResult,
		QueryID:       queryID,
		CorrelationID: correlationID,
		Command:       command,
		Result:        raw,
	}, nil
}

// NewCommandFailed builds a failure ResponseEnvelope carrying cause's
// message, tagged with both correlation ids so a client can match a
// failure back to the request that produced it.
func NewCommandFailed(queryID, correlationID, command string, cause error) *ResponseEnvelope {
	return &ResponseEnvelope{
		Type:          TypeCommandFailed,
		QueryID:       queryID,
		CorrelationID: correlationID,
		Command:       command,
		Error:         cause.Error(),
	}
}

// NewEventPublish builds an out-of-band event envelope.
func NewEventPublish(event string, payload any) (*ResponseEnvelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &ResponseEnvelope{
		Type:    TypeEventPublish,
		Event:   event,
		Payload: raw,
	}, nil
}
