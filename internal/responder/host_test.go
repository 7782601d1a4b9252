package responder

import "testing"

func TestHostLabelTruncatesAtFirstDot(t *testing.T) {
	got, err := hostLabel("workstation.example.com")
	if err != nil {
		t.Fatalf("hostLabel() error = %v", err)
	}
	if got != "workstation" {
		t.Fatalf("hostLabel() = %q, want %q", got, "workstation")
	}
}

func TestHostLabelTruncatesToMaxLabelLength(t *testing.T) {
	long := ""
	for i := 0; i < 80; i++ {
		long += "a"
	}
	got, err := hostLabel(long)
	if err != nil {
		t.Fatalf("hostLabel() error = %v", err)
	}
	if len(got) != 63 {
		t.Fatalf("hostLabel() length = %d, want 63", len(got))
	}
}

func TestMatchesHostIsASCIICaseInsensitive(t *testing.T) {
	if !matchesHost("WORKSTATION", "workstation") {
		t.Fatal("expected case-insensitive match")
	}
	if matchesHost("workstation2", "workstation") {
		t.Fatal("expected mismatch for different names")
	}
}
