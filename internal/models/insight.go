package models

// Insight is one rule-triggered advisory. Icon is an opaque glyph passed through to the client.
type Insight struct {
	Icon        string `json:"icon"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// UnitPreference is the preference snapshot for one render pass.
type UnitPreference struct {
	UseCelsius bool `json:"useCelsius"`
	UseMph     bool `json:"useMph"`
}

// DefaultUnits matches a fresh account: Celsius and km/h.
func DefaultUnits() UnitPreference {
	return UnitPreference{UseCelsius: true, UseMph: false}
}
