package matchers

import "strings"

// defaultFieldWeight applies to any field name no pattern recognizes
const defaultFieldWeight = 0.5

var weightPatterns = []struct {
	matches func(fieldName string) bool
	weight  float64
}{
	{IsEmailField, 0.8},
	{IsPhoneField, 0.7},
	{isPersonNamePart, 0.5},
	{IsNameField, 0.6},
	{containsAny("street", "address"), 0.5},
	{containsAny("city", "postal", "zip"), 0.4},
	{containsAny("state", "country"), 0.3},
}

// isPersonNamePart matches split name components like FirstName or last_name,
// which carry less signal than a whole name field
func isPersonNamePart(fieldName string) bool {
	if !IsNameField(fieldName) {
		return false
	}
	lower := strings.ToLower(fieldName)
	return strings.Contains(lower, "first") || strings.Contains(lower, "last") || strings.Contains(lower, "middle")
}

func containsAny(parts ...string) func(fieldName string) bool {
	return func(fieldName string) bool {
		lower := strings.ToLower(fieldName)
		for _, part := range parts {
			if strings.Contains(lower, part) {
				return true
			}
		}
		return false
	}
}

// WeightFor returns the built-in weight for a field name. Per-field
// configuration overrides are applied by the caller, not here.
func WeightFor(fieldName string) float64 {
	for _, p := range weightPatterns {
		if p.matches(fieldName) {
			return p.weight
		}
	}
	return defaultFieldWeight
}
