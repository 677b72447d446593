package domain

import (
	"encoding/json"
	"testing"
)

func TestParseGuideline(t *testing.T) {
	tests := []struct {
		input    string
		expected Guideline
		wantErr  bool
	}{
		{"FCSA", GuidelineFCSA, false},
		{"accp", GuidelineACCP, false},
		{" Fcsa ", GuidelineFCSA, false},
		{"NICE", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseGuideline(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseGuideline(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, got)
			}
		})
	}
}

func TestINRBandNames(t *testing.T) {
	seen := make(map[string]bool)
	for _, b := range AllBands() {
		name := b.String()
		if name == "" || seen[name] {
			t.Errorf("band %d has empty or duplicate name %q", int(b), name)
		}
		seen[name] = true
	}
	if len(seen) != INRBandCount {
		t.Errorf("Expected %d band names, got %d", INRBandCount, len(seen))
	}
	if got := INRBand(42).String(); got != "INRBand(42)" {
		t.Errorf("Expected INRBand(42), got %s", got)
	}
}

func TestINRBandSides(t *testing.T) {
	tests := []struct {
		band     INRBand
		sub      bool
		supra    bool
		severity int
	}{
		{BandInRange, false, false, 0},
		{BandSubLieve, true, false, 1},
		{BandSubCritico, true, false, 3},
		{BandSovraLieve, false, true, 1},
		{BandSovraCritico, false, true, 5},
		{BandSovraEstremo, false, true, 6},
	}

	for _, tt := range tests {
		t.Run(tt.band.String(), func(t *testing.T) {
			if tt.band.IsSubTherapeutic() != tt.sub {
				t.Errorf("IsSubTherapeutic = %v, want %v", tt.band.IsSubTherapeutic(), tt.sub)
			}
			if tt.band.IsSupraTherapeutic() != tt.supra {
				t.Errorf("IsSupraTherapeutic = %v, want %v", tt.band.IsSupraTherapeutic(), tt.supra)
			}
			if tt.band.Severity() != tt.severity {
				t.Errorf("Severity = %d, want %d", tt.band.Severity(), tt.severity)
			}
		})
	}
}

func TestINRBandJSON(t *testing.T) {
	data, err := json.Marshal(map[string]INRBand{"band": BandSovraGrave})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"band":"SovraGrave"}` {
		t.Errorf("unexpected JSON %s", data)
	}

	var decoded map[string]INRBand
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["band"] != BandSovraGrave {
		t.Errorf("Expected SovraGrave, got %s", decoded["band"])
	}

	var b INRBand
	if err := b.UnmarshalText([]byte("Normale")); err == nil {
		t.Error("expected error for unknown band name")
	}
}

func TestBleedingType(t *testing.T) {
	if !BleedingType("").IsValid() || BleedingType("").IsBleeding() {
		t.Error("empty bleeding type should be valid and mean no bleeding")
	}
	if BleedingType("").String() != "none" {
		t.Errorf("Expected none, got %s", BleedingType("").String())
	}
	for _, bt := range []BleedingType{BleedingMinor, BleedingMajor, BleedingLifeThreatening} {
		if !bt.IsBleeding() {
			t.Errorf("%s should be an active bleed", bt)
		}
	}
	if BleedingType("severe").IsValid() {
		t.Error("severe is not a bleeding grade")
	}
}

func TestQualityForPercentage(t *testing.T) {
	tests := []struct {
		pct      float64
		expected QualityTier
	}{
		{100, QualityExcellent},
		{70, QualityExcellent},
		{69.9, QualityGood},
		{65, QualityGood},
		{60, QualityAcceptable},
		{50, QualitySuboptimal},
		{49.9, QualityPoor},
		{0, QualityPoor},
	}

	for _, tt := range tests {
		if got := QualityForPercentage(tt.pct); got != tt.expected {
			t.Errorf("QualityForPercentage(%.1f) = %s, want %s", tt.pct, got, tt.expected)
		}
	}
}

func TestEnumValidity(t *testing.T) {
	if TherapyPhase("loading").IsValid() {
		t.Error("loading is not a therapy phase")
	}
	if UrgencyTier("Immediata").IsValid() {
		t.Error("Immediata is not an urgency tier")
	}
	if !QualityInsufficient.IsValid() {
		t.Error("INSUFFICIENT_DATA should be a valid tier")
	}
}
