package invoice

// =============================================================================
// STATUS LIFECYCLE - Table-driven state machine
// =============================================================================

// Status is the lifecycle state of a ledger.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusSent      Status = "sent"
	StatusPaid      Status = "paid"
	StatusOverdue   Status = "overdue"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether no further mutation is permitted from s.
// A ledger is never deleted once it has left draft; terminal ledgers are
// archived, never destroyed.
func (s Status) Terminal() bool {
	return s == StatusPaid || s == StatusCancelled
}

// Payable reports whether payments may be recorded in s.
func (s Status) Payable() bool {
	return s == StatusSent || s == StatusOverdue
}

// Event is a lifecycle trigger applied through transition().
type Event string

const (
	EventFinalize Event = "finalize"
	EventCancel   Event = "cancel"
	EventSettle   Event = "settle"   // payment brought amountDue to zero or below
	EventPastDue  Event = "past_due" // dueDate passed with an open balance
)

// transitions is the complete edge table. Anything absent here is an
// undefined transition and is rejected; there is no other path that
// assigns a ledger status.
var transitions = map[Status]map[Event]Status{
	StatusDraft: {
		EventFinalize: StatusSent,
		EventCancel:   StatusCancelled,
	},
	StatusSent: {
		EventCancel:  StatusCancelled,
		EventSettle:  StatusPaid,
		EventPastDue: StatusOverdue,
	},
	StatusOverdue: {
		// Overdue can still settle, but never returns to sent.
		EventSettle: StatusPaid,
	},
}

// transition returns the target status for (from, event), or a
// TransitionError if the edge is undefined.
func transition(from Status, event Event) (Status, error) {
	if to, ok := transitions[from][event]; ok {
		return to, nil
	}
	return from, &TransitionError{From: from, Event: event}
}
