// Package push delivers payloads to device endpoints. Providers classify every
// attempt as delivered, transient (may succeed later) or terminal (the endpoint
// is dead and should be forgotten).
package push

import (
	"context"
	"time"
)

// Outcome is the final state of one delivery attempt.
type Outcome int

const (
	Delivered Outcome = iota + 1
	TransientFailure
	TerminalFailure
)

func (o Outcome) String() string {
	switch o {
	case Delivered:
		return "delivered"
	case TransientFailure:
		return "transient_failure"
	case TerminalFailure:
		return "terminal_failure"
	default:
		return "pending"
	}
}

func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// Target is where a message goes: the endpoint and the client keys used to encrypt for it.
type Target struct {
	Endpoint string
	P256dh   string
	Auth     string
}

// Message is the payload handed to a provider.
type Message struct {
	// ID lets receivers drop duplicates; the dispatcher never retries on its own.
	ID      string
	Payload []byte
	TTL     time.Duration
	Urgency string
	Topic   string
}

// Result describes a single attempt.
type Result struct {
	Outcome    Outcome
	Reason     string
	StatusCode int
}

// Provider sends one message to one target. Send must honor timeout and be safe
// for concurrent use. Failures are reported in Result, never panics or errors.
type Provider interface {
	Name() string
	Send(ctx context.Context, target Target, msg Message, timeout time.Duration) Result
}

func delivered(status int) Result {
	return Result{Outcome: Delivered, StatusCode: status}
}

func transient(reason string, status int) Result {
	return Result{Outcome: TransientFailure, Reason: reason, StatusCode: status}
}

func terminal(reason string, status int) Result {
	return Result{Outcome: TerminalFailure, Reason: reason, StatusCode: status}
}
