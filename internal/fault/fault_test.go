package fault

import "testing"

func TestCodeString(t *testing.T) {
	if got := ErrOverflow.String(); got != "RB1001" {
		t.Fatalf("ErrOverflow.String() = %q, want RB1001", got)
	}
	if got := ErrBadRefine.String(); got != "RB1502" {
		t.Fatalf("ErrBadRefine.String() = %q, want RB1502", got)
	}
}

func TestFatalCodes(t *testing.T) {
	fatal := []Code{ErrNoMemory, ErrMaxEvents}
	for _, c := range fatal {
		if !c.Fatal() {
			t.Errorf("%s should be fatal", c)
		}
	}
	recoverable := []Code{ErrOverflow, ErrPastEnd, ErrInvalidPort, ErrBadMedia, ErrBadPress}
	for _, c := range recoverable {
		if c.Fatal() {
			t.Errorf("%s should not be fatal", c)
		}
	}
}

func TestErrorFormatting(t *testing.T) {
	err := New(ErrPastEnd, "index %d out of range", 9)
	if got := err.Error(); got != "error RB1101: index 9 out of range" {
		t.Fatalf("Error() = %q", got)
	}

	tagged := err.WithPort("tcp")
	if got := tagged.Error(); got != "error RB1101: index 9 out of range (port tcp)" {
		t.Fatalf("tagged Error() = %q", got)
	}
	if err.Port != "" {
		t.Fatal("WithPort mutated the original error")
	}
}
