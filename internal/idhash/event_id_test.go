package idhash

import (
	"testing"
)

func TestComputeEventID(t *testing.T) {
	tests := []struct {
		name        string
		timestampMs int64
		country     string
		title       string
	}{
		{name: "US payrolls", timestampMs: 1704457800000, country: "US", title: "Non-Farm Payrolls"},
		{name: "EU CPI", timestampMs: 1704186000000, country: "EU", title: "CPI Flash Estimate YoY"},
		{name: "empty title", timestampMs: 0, country: "", title: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := ComputeEventID(tt.timestampMs, tt.country, tt.title)
			if len(id) != 64 {
				t.Errorf("expected hash length 64, got %d", len(id))
			}
			if id2 := ComputeEventID(tt.timestampMs, tt.country, tt.title); id != id2 {
				t.Errorf("hash not deterministic: %s != %s", id, id2)
			}
		})
	}
}

func TestComputeEventID_NormalizesCountryAndTitle(t *testing.T) {
	a := ComputeEventID(1000, "us", " Non-Farm Payrolls ")
	b := ComputeEventID(1000, "US", "Non-Farm Payrolls")
	if a != b {
		t.Errorf("expected normalized inputs to hash equally")
	}
}

func TestComputeEventID_DifferentInputs(t *testing.T) {
	base := ComputeEventID(1000, "US", "CPI")
	if ComputeEventID(1001, "US", "CPI") == base {
		t.Error("different timestamp should produce different hash")
	}
	if ComputeEventID(1000, "EU", "CPI") == base {
		t.Error("different country should produce different hash")
	}
	if ComputeEventID(1000, "US", "PPI") == base {
		t.Error("different title should produce different hash")
	}
}
