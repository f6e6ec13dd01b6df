package store

import (
	"log/slog"
	"strconv"
)

// parseIntOrDefault parses a stored value as an integer, returning def on
// malformed values. Stored integers are text so all backends share one schema.
func parseIntOrDefault(val string, def int) int {
	if val == "" {
		return def
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		slog.Warn("store: stored value is not an integer, using default", "value", val, "default", def)
		return def
	}
	return n
}

func formatInt(value int) string {
	return strconv.Itoa(value)
}
