package util

import (
	"testing"
	"time"
)

func TestParseBoolEnv(t *testing.T) {
	t.Setenv("GA_TEST_BOOL", "yes")
	if !ParseBoolEnv("GA_TEST_BOOL", false) {
		t.Error("yes parsed as false")
	}
	t.Setenv("GA_TEST_BOOL", "off")
	if ParseBoolEnv("GA_TEST_BOOL", true) {
		t.Error("off parsed as true")
	}
	t.Setenv("GA_TEST_BOOL", "banana")
	if !ParseBoolEnv("GA_TEST_BOOL", true) {
		t.Error("invalid value did not fall back to default")
	}
	if ParseBoolEnv("GA_TEST_BOOL_UNSET", false) {
		t.Error("unset variable did not use default")
	}
}

func TestParseIntEnv(t *testing.T) {
	t.Setenv("GA_TEST_INT", "250")
	if got := ParseIntEnv("GA_TEST_INT", 0); got != 250 {
		t.Errorf("ParseIntEnv = %d, want 250", got)
	}
	t.Setenv("GA_TEST_INT", "not-a-number")
	if got := ParseIntEnv("GA_TEST_INT", 7); got != 7 {
		t.Errorf("invalid value = %d, want default 7", got)
	}
}

func TestParseDurationEnv(t *testing.T) {
	t.Setenv("GA_TEST_DUR", "30s")
	if got := ParseDurationEnv("GA_TEST_DUR", 0); got != 30*time.Second {
		t.Errorf("ParseDurationEnv = %v, want 30s", got)
	}
	t.Setenv("GA_TEST_DUR", "soon")
	if got := ParseDurationEnv("GA_TEST_DUR", time.Minute); got != time.Minute {
		t.Errorf("invalid value = %v, want default 1m", got)
	}
}
