package tariff

import "github.com/whsiao/tariffcompare/internal/catalog"

// CompletenessLevel grades how much of the time-segmented consumption was
// actually measured.
type CompletenessLevel string

const (
	// TotalOnly: only the total kWh is known. TOU plans need estimation.
	TotalOnly CompletenessLevel = "total_only"
	// TwoTier: peak and off-peak were measured, semi-peak was not.
	// Three-period plans need a segment split.
	TwoTier CompletenessLevel = "two_tier"
	// ThreeTier: all three segments were measured.
	ThreeTier CompletenessLevel = "three_tier"
)

// CompletenessReport classifies an input and lists which plan types can be
// computed exactly versus which need estimation or splitting.
type CompletenessReport struct {
	Level                  CompletenessLevel `json:"level"`
	CanCalculateAccurately []catalog.TouType `json:"canCalculateAccurately"`
	NeedsEstimation        []catalog.TouType `json:"needsEstimation"`
	NeedsSplit             []catalog.TouType `json:"needsSplit"`
}

// Classify grades the consumption record. It never fails: any segment
// combination that is not recognizably two- or three-tier degrades to
// TotalOnly, which only costs accuracy, never correctness.
func Classify(c Consumption) CompletenessReport {
	level := classifyLevel(c)
	return CompletenessReport{
		Level:                  level,
		CanCalculateAccurately: accurateTypes(level),
		NeedsEstimation:        estimationTypes(level),
		NeedsSplit:             splitTypes(level),
	}
}

func classifyLevel(c Consumption) CompletenessLevel {
	hasPeak := present(c.PeakOnPeak)
	hasSemi := present(c.SemiPeak)
	hasOff := present(c.OffPeak)

	switch {
	case hasPeak && hasSemi && hasOff:
		return ThreeTier
	case hasPeak && hasOff && !hasSemi:
		return TwoTier
	default:
		return TotalOnly
	}
}

// present treats zero the same as absent: a zero segment reading carries no
// information the total does not.
func present(v *float64) bool {
	return v != nil && *v > 0
}

func accurateTypes(level CompletenessLevel) []catalog.TouType {
	switch level {
	case ThreeTier:
		return []catalog.TouType{catalog.TouNone, catalog.TouSimple2Tier, catalog.TouSimple3Tier, catalog.TouFull}
	case TwoTier:
		return []catalog.TouType{catalog.TouNone, catalog.TouSimple2Tier}
	default:
		return []catalog.TouType{catalog.TouNone}
	}
}

func estimationTypes(level CompletenessLevel) []catalog.TouType {
	if level == TotalOnly {
		return []catalog.TouType{catalog.TouSimple2Tier, catalog.TouSimple3Tier, catalog.TouFull}
	}
	return nil
}

func splitTypes(level CompletenessLevel) []catalog.TouType {
	if level == TwoTier {
		return []catalog.TouType{catalog.TouSimple3Tier, catalog.TouFull}
	}
	return nil
}
