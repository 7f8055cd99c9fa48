package flow

import (
	"github.com/shopspring/decimal"
)

// Flow identifies one of the independent per-user state machines.
type Flow int

const (
	FlowNone Flow = iota
	FlowRegistration
	FlowTip
	FlowWithdrawal
)

func (f Flow) String() string {
	switch f {
	case FlowRegistration:
		return "registration"
	case FlowTip:
		return "tip"
	case FlowWithdrawal:
		return "withdrawal"
	default:
		return "none"
	}
}

// State is the position inside a flow. Idle is both the initial and the
// terminal state; a user with no session is in Idle for every flow.
type State int

const (
	StateIdle State = iota
	StateAwaitingAddress
	StateAwaitingAmount
	StateAwaitingConfirmation
)

func (s State) String() string {
	switch s {
	case StateAwaitingAddress:
		return "awaiting_address"
	case StateAwaitingAmount:
		return "awaiting_amount"
	case StateAwaitingConfirmation:
		return "awaiting_confirmation"
	default:
		return "idle"
	}
}

// EventKind distinguishes free text from structured action presses.
type EventKind int

const (
	EventText EventKind = iota
	EventAction
)

// Event is one inbound chat event, as delivered by the transport.
type Event struct {
	UserId    int64
	Username  string
	FirstName string
	LastName  string
	Kind      EventKind
	// Payload carries the message text for EventText and the action id
	// for EventAction.
	Payload string
}

// Action is a structured choice offered back to the user.
type Action struct {
	Label string
	Data  string
}

// Reply is the engine's response to one event.
type Reply struct {
	Text    string
	Actions []Action
}

// intent carries the transfer being assembled across the steps of one
// flow. It is transient: destroyed on confirm, cancel, or session reset.
type intent struct {
	senderWallet    string
	recipientId     int64
	recipientName   string
	recipientWallet string
	amount          decimal.Decimal
	balanceAtStart  decimal.Decimal // withdrawal only: captured at flow start
	idempotencyKey  string
}
