package layout

import (
	"strings"
	"unicode"

	"github.com/UnendingLoop/ExifFrame/internal/model"
)

const paramSeparator = " | "

// ParameterTexts returns the exposure runs of the right group in display
// order. Absent or zero values are skipped; the last run loses its
// trailing separator.
func ParameterTexts(meta model.MetadataRecord) []string {
	candidates := []struct {
		value  string
		format func(string) string
	}{
		{meta.FocalLength, func(v string) string { return v + "mm" }},
		{meta.FNumber, func(v string) string { return "f/" + v }},
		{meta.ExposureTime, func(v string) string { return "1/" + v + "s" }},
		{meta.ISO, func(v string) string { return "ISO" + v }},
	}

	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if model.IsAbsent(c.value) {
			continue
		}
		out = append(out, c.format(strings.TrimSpace(c.value))+paramSeparator)
	}

	if n := len(out); n > 0 {
		out[n-1] = strings.TrimRightFunc(out[n-1], func(r rune) bool {
			return r == '|' || unicode.IsSpace(r)
		})
	}
	return out
}
