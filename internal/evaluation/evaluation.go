package evaluation

import "fmt"

// Tier is the qualitative band a measurement falls into.
type Tier string

const (
	TierGood     Tier = "good"
	TierModerate Tier = "moderate"
	TierPoor     Tier = "poor"
)

// TierRule describes one band of a criteria set. Good uses Min only
// (open-ended upper), Moderate uses both bounds, Poor uses Max only
// (open-ended lower). All bounds are inclusive.
type TierRule struct {
	Min         float64 `yaml:"min,omitempty" json:"min,omitempty"`
	Max         float64 `yaml:"max,omitempty" json:"max,omitempty"`
	Label       string  `yaml:"label" json:"label"`
	Color       string  `yaml:"color" json:"color"`
	Icon        string  `yaml:"icon" json:"icon"`
	Description string  `yaml:"description,omitempty" json:"description,omitempty"`
}

// Criteria holds the three ordered tiers used to classify a value.
type Criteria struct {
	Unit     string   `yaml:"unit,omitempty" json:"unit,omitempty"`
	Good     TierRule `yaml:"good" json:"good"`
	Moderate TierRule `yaml:"moderate" json:"moderate"`
	Poor     TierRule `yaml:"poor" json:"poor"`
}

// Result is the outcome of classifying a single value.
type Result struct {
	Tier        Tier    `json:"tier"`
	Value       float64 `json:"value"`
	Label       string  `json:"label"`
	Color       string  `json:"color"`
	Icon        string  `json:"icon"`
	Description string  `json:"description,omitempty"`
}

// Validate checks that the tier bounds are ordered so classification
// partitions the domain: poor below moderate below good, no overlap.
func (c *Criteria) Validate() error {
	if c.Moderate.Min > c.Moderate.Max {
		return fmt.Errorf("moderate tier has min %v above max %v", c.Moderate.Min, c.Moderate.Max)
	}
	if c.Moderate.Max >= c.Good.Min {
		return fmt.Errorf("moderate max %v overlaps good min %v", c.Moderate.Max, c.Good.Min)
	}
	if c.Poor.Max >= c.Moderate.Min {
		return fmt.Errorf("poor max %v overlaps moderate min %v", c.Poor.Max, c.Moderate.Min)
	}
	return nil
}

// Classify maps a value to exactly one tier. Evaluation order is fixed:
// good first, then moderate, else poor, so a value equal to good's lower
// bound is good, never moderate.
func Classify(value float64, c Criteria) Result {
	switch {
	case value >= c.Good.Min:
		return result(TierGood, value, c.Good)
	case value >= c.Moderate.Min && value <= c.Moderate.Max:
		return result(TierModerate, value, c.Moderate)
	default:
		return result(TierPoor, value, c.Poor)
	}
}

func result(tier Tier, value float64, rule TierRule) Result {
	return Result{
		Tier:        tier,
		Value:       value,
		Label:       rule.Label,
		Color:       rule.Color,
		Icon:        rule.Icon,
		Description: rule.Description,
	}
}
