package domain

import "time"

// EventKind names an entry in the append-only notification log.
type EventKind string

const (
	EventTenantCreated  EventKind = "TENANT_CREATED"
	EventProjectCreated EventKind = "PROJECT_CREATED"
	EventTokenLocked    EventKind = "TOKEN_LOCKED"
	EventMintSingle     EventKind = "MINT_SINGLE"
	EventMintBatch      EventKind = "MINT_BATCH"
	EventTradeCompleted EventKind = "TRADE_COMPLETED"
)

// Event is one notification-log entry. It carries the full resulting
// record(s) so external indexers never need a follow-up read.
type Event struct {
	Kind     EventKind `json:"kind"`
	At       time.Time `json:"at"`
	Operator Address   `json:"operator,omitempty"`
	Account  Address   `json:"account,omitempty"`
	Project  *Project  `json:"project,omitempty"`
	Tokens   []Token   `json:"tokens,omitempty"`
	From     []Address `json:"from,omitempty"`
	To       []Address `json:"to,omitempty"`
	TokenIDs []uint64  `json:"token_ids,omitempty"`
	Amounts  []uint64  `json:"amounts,omitempty"`
}

// EventSink receives events synchronously as they are emitted.
type EventSink func(Event)
