package catalog

import "strings"

// directionless holds the joints and limbs where left/right and
// front/back qualifiers are not diagnostically distinguishing, so a
// tag like "left-knee-front" collapses to "knee".
var directionless = map[string]bool{
	"hip":   true,
	"thigh": true,
	"knee":  true,
	"ankle": true,
	"calf":  true,
}

// NormalizeRegion strips direction qualifiers from a reported pain-region
// tag when the underlying joint/limb is directionless. All other tags
// pass through unchanged.
func NormalizeRegion(tag string) string {
	base := strings.ToLower(strings.TrimSpace(tag))
	base = strings.TrimPrefix(base, "left-")
	base = strings.TrimPrefix(base, "right-")
	base = strings.TrimSuffix(base, "-front")
	base = strings.TrimSuffix(base, "-back")
	if directionless[base] {
		return base
	}
	return strings.ToLower(strings.TrimSpace(tag))
}

// FilterTests reduces a category's tests to those relevant to the user's
// reported pain regions, preserving catalog order. Reporting no regions
// skips filtering entirely. Tests declaring no regions are always
// included. Matching is by normalized substring
// containment, so a coarse user tag like "knee" still matches
// "knee-inner". If nothing survives the filter, the full category list
// is returned so an over-aggressive filter never blocks testing.
func FilterTests(cat *Category, userRegions []string) []Test {
	if len(userRegions) == 0 {
		return append([]Test(nil), cat.Tests...)
	}

	normalized := make([]string, 0, len(userRegions))
	for _, r := range userRegions {
		normalized = append(normalized, NormalizeRegion(r))
	}

	var filtered []Test
	for _, t := range cat.Tests {
		if len(t.Regions) == 0 || matchesAny(t.Regions, normalized) {
			filtered = append(filtered, t)
		}
	}

	if len(filtered) == 0 {
		return append([]Test(nil), cat.Tests...)
	}
	return filtered
}

func matchesAny(testRegions, userRegions []string) bool {
	for _, tr := range testRegions {
		ntr := NormalizeRegion(tr)
		for _, ur := range userRegions {
			if strings.Contains(ur, ntr) || strings.Contains(ntr, ur) {
				return true
			}
		}
	}
	return false
}
