package utils

import "testing"

func TestRound1(t *testing.T) {
	tests := []struct {
		input    float64
		expected float64
	}{
		{57.142857, 57.1},
		{30.0, 30.0},
		{0.25, 0.2},
		{0.35, 0.3},
		{99.96, 100.0},
		{-0.04, -0.0},
		{114.2857, 114.3},
	}

	for _, tt := range tests {
		result := Round1(tt.input)
		if result != tt.expected {
			t.Errorf("Round1(%v) = %v, want %v", tt.input, result, tt.expected)
		}
	}
}

func TestFormatPct(t *testing.T) {
	tests := []struct {
		input    float64
		expected string
	}{
		{45, "45.0%"},
		{57.1, "57.1%"},
		{100, "100.0%"},
		{0, "0.0%"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := FormatPct(tt.input); got != tt.expected {
				t.Errorf("FormatPct(%v) = %s, want %s", tt.input, got, tt.expected)
			}
		})
	}
}

func TestFormatWhole(t *testing.T) {
	if got := FormatWhole(100.0); got != "100" {
		t.Errorf("FormatWhole(100.0) = %s, want 100", got)
	}
	if got := FormatWhole(99.5); got != "99.5" {
		t.Errorf("FormatWhole(99.5) = %s, want 99.5", got)
	}
}

func TestParseDecimal(t *testing.T) {
	tests := []struct {
		input   string
		want    float64
		wantErr bool
	}{
		{"43.2", 43.2, false},
		{"43.2%", 43.2, false},
		{"-14.3", -14.3, false},
		{"100", 100, false},
		{"1.2.3", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseDecimal(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseDecimal(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseDecimal(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestClamp(t *testing.T) {
	if got := Clamp(114.3, 100); got != 100 {
		t.Errorf("Clamp(114.3, 100) = %v, want 100", got)
	}
	if got := Clamp(57.1, 100); got != 57.1 {
		t.Errorf("Clamp(57.1, 100) = %v, want 57.1", got)
	}
}
