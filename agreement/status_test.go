package agreement

import "testing"

func TestCanTransition(t *testing.T) {
	allowed := []struct{ from, to Status }{
		{StatusDraft, StatusPendingSignatures},
		{StatusDraft, StatusCancelled},
		{StatusPendingSignatures, StatusPendingWitness},
		{StatusPendingSignatures, StatusExpired},
		{StatusPendingWitness, StatusActive},
		{StatusActive, StatusCompleted},
	}
	for _, tc := range allowed {
		if !CanTransition(tc.from, tc.to) {
			t.Errorf("expected %s -> %s to be allowed", tc.from, tc.to)
		}
	}

	forbidden := []struct{ from, to Status }{
		{StatusDraft, StatusActive},
		{StatusDraft, StatusPendingWitness},
		{StatusPendingSignatures, StatusDraft},
		{StatusPendingWitness, StatusPendingSignatures},
		{StatusActive, StatusDraft},
		{StatusCancelled, StatusDraft},
		{StatusCompleted, StatusActive},
		{StatusExpired, StatusPendingSignatures},
	}
	for _, tc := range forbidden {
		if CanTransition(tc.from, tc.to) {
			t.Errorf("expected %s -> %s to be forbidden", tc.from, tc.to)
		}
	}
}

func TestIsTerminal(t *testing.T) {
	for _, s := range []Status{StatusCancelled, StatusExpired, StatusCompleted} {
		if !s.IsTerminal() {
			t.Errorf("expected %s to be terminal", s)
		}
	}
	for _, s := range []Status{StatusDraft, StatusPendingSignatures, StatusPendingWitness, StatusActive} {
		if s.IsTerminal() {
			t.Errorf("expected %s to be non-terminal", s)
		}
	}
}
