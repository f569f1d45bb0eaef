package models

import "testing"

func TestCommitteeSkipsEmptySeats(t *testing.T) {
	req := &DefenseRequest{
		AdviserName:        "  ",
		DefenseChairperson: "Dr. Reyes",
		DefensePanelist1:   "Dr. Santos",
		DefensePanelist3:   " Dr. Cruz ",
	}

	seats := req.Committee()
	if len(seats) != 3 {
		t.Fatalf("Expected 3 seats, got %d", len(seats))
	}

	want := []CommitteeSeat{
		{Role: RolePanelChair, Name: "Dr. Reyes"},
		{Role: RolePanelMember1, Name: "Dr. Santos"},
		{Role: RolePanelMember3, Name: "Dr. Cruz"},
	}
	for i := range want {
		if seats[i] != want[i] {
			t.Errorf("Seat %d: expected %+v, got %+v", i, want[i], seats[i])
		}
	}

	if req.PanelMembers() != 2 {
		t.Errorf("Expected 2 panel members, got %d", req.PanelMembers())
	}
}

func TestParseCommitteeRoleIsVerbatim(t *testing.T) {
	if role, ok := ParseCommitteeRole("Panel Member 1"); !ok || role != RolePanelMember1 {
		t.Errorf("Expected Panel Member 1 to parse, got %q ok=%v", role, ok)
	}

	for _, s := range []string{"panel member 1", "Panel Member", "Panelist"} {
		if _, ok := ParseCommitteeRole(s); ok {
			t.Errorf("Expected %q to be rejected", s)
		}
	}
}

func TestAAStatusRank(t *testing.T) {
	if AAPending.Rank() >= AAReadyForFinance.Rank() {
		t.Error("pending must rank before ready_for_finance")
	}
	if AAStatus("approved").Valid() {
		t.Error("unknown status must not be valid")
	}
}

func TestCentavosFormatting(t *testing.T) {
	tests := []struct {
		amount Centavos
		text   string
		words  string
	}{
		{FromPesos(12000), "₱12,000.00", "twelve thousand pesos"},
		{FromPesos(500.5), "₱500.50", "five hundred pesos and 50/100"},
		{FromPesos(0), "₱0.00", "zero pesos"},
		{FromPesos(1234567.89), "₱1,234,567.89", ""},
	}

	for _, tt := range tests {
		if got := tt.amount.String(); got != tt.text {
			t.Errorf("String(%d): expected %q, got %q", tt.amount, tt.text, got)
		}
		if tt.words != "" {
			if got := tt.amount.Words(); got != tt.words {
				t.Errorf("Words(%d): expected %q, got %q", tt.amount, tt.words, got)
			}
		}
	}
}
