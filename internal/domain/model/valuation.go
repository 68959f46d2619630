package model

// Composite component names.
const (
	ComponentProjectedValue = "projected_value"
	ComponentSleeperUpside  = "sleeper_upside"
	ComponentBustSafety     = "bust_safety"
	ComponentConsistency    = "consistency"
	ComponentAgeCurve       = "age_curve"
	ComponentOpportunity    = "opportunity"
)

// ComponentNames lists composite components in declaration order.
var ComponentNames = []string{
	ComponentProjectedValue,
	ComponentSleeperUpside,
	ComponentBustSafety,
	ComponentConsistency,
	ComponentAgeCurve,
	ComponentOpportunity,
}

// ComponentValue is one weighted composite input.
type ComponentValue struct {
	Name   string  `json:"name"`
	Value  float64 `json:"value"`
	Weight float64 `json:"weight"`
}

// LeaguePrice is the league-specific price of one player key.
type LeaguePrice struct {
	LeagueValue  float64 // SGP total or points
	Percentile   float64 // [0,1] within the domain pool
	AuctionValue float64 // dollars, rounded to cents
	Rostered     bool
}

// CompositeValuation is the final value of one player key.
type CompositeValuation struct {
	AIValueScore float64
	AuctionValue *float64
	SurplusValue *float64
	DynastyValue *float64
	Components   []ComponentValue
	ModelRefs    []string
}
