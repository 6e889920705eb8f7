// Package jsonutil holds small decoding helpers shared by the handlers.
package jsonutil

import "strings"

// SplitCSV splits a comma-separated string into trimmed, non-empty parts.
// Clients send list-valued filter parameters both as repeated values and as
// one comma-joined string; both shapes normalize through this. An input
// with no usable parts yields nil.
func SplitCSV(s string) []string {
	var parts []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}
