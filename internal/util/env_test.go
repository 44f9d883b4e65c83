package util

import (
	"testing"
	"time"
)

func TestParseBoolEnv(t *testing.T) {
	tests := []struct {
		value string
		def   bool
		want  bool
	}{
		{"", true, true},
		{"true", false, true},
		{"YES", false, true},
		{" on ", false, true},
		{"0", true, false},
		{"off", true, false},
		{"maybe", true, true},
		{"maybe", false, false},
	}
	for _, tt := range tests {
		t.Setenv("SUPPORTPIPE_TEST_BOOL", tt.value)
		if got := ParseBoolEnv("SUPPORTPIPE_TEST_BOOL", tt.def); got != tt.want {
			t.Errorf("ParseBoolEnv(%q, %v) = %v, want %v", tt.value, tt.def, got, tt.want)
		}
	}
}

func TestParseDurationEnv(t *testing.T) {
	tests := []struct {
		value string
		want  time.Duration
	}{
		{"", 20 * time.Second},
		{"5s", 5 * time.Second},
		{"1m30s", 90 * time.Second},
		{"soon", 20 * time.Second},
		{"-1s", 20 * time.Second},
	}
	for _, tt := range tests {
		t.Setenv("SUPPORTPIPE_TEST_DURATION", tt.value)
		if got := ParseDurationEnv("SUPPORTPIPE_TEST_DURATION", 20*time.Second); got != tt.want {
			t.Errorf("ParseDurationEnv(%q) = %v, want %v", tt.value, got, tt.want)
		}
	}
}

func TestParseIntEnv(t *testing.T) {
	tests := []struct {
		value string
		want  int
	}{
		{"", 30},
		{"10", 10},
		{"-1", -1},
		{"ten", 30},
	}
	for _, tt := range tests {
		t.Setenv("SUPPORTPIPE_TEST_INT", tt.value)
		if got := ParseIntEnv("SUPPORTPIPE_TEST_INT", 30); got != tt.want {
			t.Errorf("ParseIntEnv(%q) = %v, want %v", tt.value, got, tt.want)
		}
	}
}
