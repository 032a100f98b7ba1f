package util

import "testing"

func TestParseBoolEnv(t *testing.T) {
	tests := []struct {
		value    string
		def      bool
		expected bool
	}{
		{value: "", def: true, expected: true},
		{value: "", def: false, expected: false},
		{value: "true", def: false, expected: true},
		{value: "1", def: false, expected: true},
		{value: "YES", def: false, expected: true},
		{value: "on", def: false, expected: true},
		{value: "false", def: true, expected: false},
		{value: "0", def: true, expected: false},
		{value: "off", def: true, expected: false},
		{value: "banana", def: true, expected: true},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("PACKVOTE_TEST_BOOL", tt.value)
			if got := ParseBoolEnv("PACKVOTE_TEST_BOOL", tt.def); got != tt.expected {
				t.Errorf("ParseBoolEnv(%q, %v) = %v, want %v", tt.value, tt.def, got, tt.expected)
			}
		})
	}
}

func TestParseIntEnv(t *testing.T) {
	tests := []struct {
		value    string
		def      int
		expected int
	}{
		{value: "", def: 8, expected: 8},
		{value: "12", def: 8, expected: 12},
		{value: " 3 ", def: 8, expected: 3},
		{value: "-1", def: 8, expected: -1},
		{value: "abc", def: 8, expected: 8},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("PACKVOTE_TEST_INT", tt.value)
			if got := ParseIntEnv("PACKVOTE_TEST_INT", tt.def); got != tt.expected {
				t.Errorf("ParseIntEnv(%q, %d) = %d, want %d", tt.value, tt.def, got, tt.expected)
			}
		})
	}
}
