package consts

import "strings"

// DefaultProduct - product tracked when a target does not name one.
const DefaultProduct = "BẠC MIẾNG PHÚ QUÝ 999 1 LƯỢNG"

// DefaultUnit - unit label used when the feed row has none.
const DefaultUnit = "Vnđ/Lượng"

// AllowedCategories - categories rendered on the snapshot card by default.
var AllowedCategories = []string{"BẠC THƯƠNG HIỆU PHÚ QUÝ"}

// IsAllowed reports whether category is in allowed (case-insensitive).
// An empty allow-list lets every category through.
func IsAllowed(category string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	c := strings.ToUpper(strings.TrimSpace(category))
	for _, a := range allowed {
		if c == strings.ToUpper(strings.TrimSpace(a)) {
			return true
		}
	}
	return false
}

// DefaultSessionKey - session used by login flows that do not name one.
const DefaultSessionKey = "main"
