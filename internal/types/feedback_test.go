package types

import (
	"encoding/json"
	"testing"
)

func TestEndReasonText(t *testing.T) {
	tests := []struct {
		reason EndReason
		text   string
	}{
		{EndReasonNotFound, "not-found"},
		{EndReasonNatural, "natural"},
		{EndReasonExpired, "expired"},
		{EndReasonCancelled, "cancelled"},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			data, err := json.Marshal(tt.reason)
			if err != nil {
				t.Fatal(err)
			}
			if string(data) != `"`+tt.text+`"` {
				t.Errorf("Marshal = %s, want %q", data, tt.text)
			}

			var got EndReason
			if err := json.Unmarshal(data, &got); err != nil {
				t.Fatal(err)
			}
			if got != tt.reason {
				t.Errorf("Unmarshal = %v, want %v", got, tt.reason)
			}
		})
	}
}

func TestEndReasonInvalid(t *testing.T) {
	if _, err := json.Marshal(EndReason(7)); err == nil {
		t.Error("expected error marshaling an out-of-range reason")
	}
	var r EndReason
	if err := json.Unmarshal([]byte(`"exploded"`), &r); err == nil {
		t.Error("expected error for unknown reason name")
	}
	if got := EndReason(7).String(); got != "EndReason(7)" {
		t.Errorf("String() = %q", got)
	}
}

func TestLevelOrdering(t *testing.T) {
	if !(LevelSilent < LevelQuiet && LevelQuiet < LevelFull) {
		t.Fatal("levels must be ordered silent < quiet < full")
	}
	for _, name := range Profiles() {
		if ParseLevel(name).String() != name {
			t.Errorf("round trip failed for %q", name)
		}
	}
	if ParseLevel("loud") != LevelUnknown {
		t.Error("unknown profile should map to LevelUnknown")
	}
}
