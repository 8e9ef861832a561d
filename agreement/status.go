package agreement

// Status is the agreement lifecycle state. Status only advances forward
// through the transition graph; it never regresses except via explicit
// administrative cancellation.
type Status string

const (
	StatusDraft             Status = "draft"
	StatusPendingSignatures Status = "pending_signatures"
	StatusPendingWitness    Status = "pending_witness"
	StatusActive            Status = "active"
	StatusCancelled         Status = "cancelled"
	StatusExpired           Status = "expired"
	StatusCompleted         Status = "completed"
)

var transitions = map[Status][]Status{
	StatusDraft:             {StatusPendingSignatures, StatusCancelled},
	StatusPendingSignatures: {StatusPendingWitness, StatusCancelled, StatusExpired},
	StatusPendingWitness:    {StatusActive, StatusCancelled, StatusExpired},
	StatusActive:            {StatusCompleted, StatusExpired},
}

// CanTransition reports whether the status graph permits from -> to.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions leave the status.
func (s Status) IsTerminal() bool {
	return len(transitions[s]) == 0
}
