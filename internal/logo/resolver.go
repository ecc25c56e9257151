// Package logo maps camera manufacturer strings to logo assets.
package logo

import "strings"

// Key names a known manufacturer and its logo asset.
type Key string

// Manufacturer is one entry of the known-manufacturer table.
type Manufacturer struct {
	Key         Key    `json:"key"`
	DisplayName string `json:"display_name"`
}

// known is matched in declaration order; the first key found inside the
// lower-cased make wins.
var known = []Manufacturer{
	{Key: "canon", DisplayName: "佳能"},
	{Key: "fujifilm", DisplayName: "富士"},
	{Key: "nikon", DisplayName: "尼康"},
	{Key: "panasonic", DisplayName: "松下"},
	{Key: "sony", DisplayName: "索尼"},
}

// Known returns a copy of the manufacturer table in match order.
func Known() []Manufacturer {
	out := make([]Manufacturer, len(known))
	copy(out, known)
	return out
}

func match(cameraMake string) (Manufacturer, bool) {
	m := strings.ToLower(cameraMake)
	if strings.TrimSpace(m) == "" {
		return Manufacturer{}, false
	}
	for _, k := range known {
		if strings.Contains(m, string(k.Key)) {
			return k, true
		}
	}
	return Manufacturer{}, false
}

// ResolveLogo returns the logo key for a camera make, if any.
func ResolveLogo(cameraMake string) (Key, bool) {
	m, ok := match(cameraMake)
	return m.Key, ok
}

// ResolveDisplayName returns the localized manufacturer name for a camera make.
func ResolveDisplayName(cameraMake string) (string, bool) {
	m, ok := match(cameraMake)
	return m.DisplayName, ok
}
