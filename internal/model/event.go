package model

import "time"

type EventType string

const (
	EventTransactionCreated             EventType = "transaction.created"
	EventTransactionReceiptSubmitted    EventType = "transaction.receipt_submitted"
	EventTransactionVerified            EventType = "transaction.verified"
	EventTransactionRejected            EventType = "transaction.rejected"
	EventTransactionPaid                EventType = "transaction.paid"
	EventTransactionChargebackRequested EventType = "transaction.chargeback_requested"
	EventTransactionChargebackApproved  EventType = "transaction.chargeback_approved"
	EventTransactionChargebackDismissed EventType = "transaction.chargeback_dismissed"
	EventWithdrawalRequested            EventType = "withdrawal.requested"
	EventWithdrawalPaid                 EventType = "withdrawal.paid"
	EventWithdrawalCancelled            EventType = "withdrawal.cancelled"
	EventAdjustmentAppended             EventType = "adjustment.appended"
)

const (
	EntityTransaction = "transaction"
	EntityWithdrawal  = "withdrawal"
	EntityAdjustment  = "adjustment"
)

// Event is a lifecycle notification emitted after a committed command.
type Event struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	EntityKind string    `json:"entity_kind"`
	EntityID   string    `json:"entity_id"`
	ClientID   string    `json:"client_id"`
	ActorID    string    `json:"actor_id,omitempty"`
	Amount     int64     `json:"amount"`
	Status     string    `json:"status,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
