package catalog

import "errors"

var (
	// ErrCatalogLoad is returned when the plan document cannot be fetched,
	// decoded, or fails validation. Use with errors.Is.
	ErrCatalogLoad = errors.New("catalog load failed")

	// ErrUnknownTouType is returned when a plan carries a TOU structure
	// outside the closed enumeration.
	ErrUnknownTouType = errors.New("unknown TOU type")

	// ErrUnknownPlanType is returned when a raw plan's rate structure marker
	// is outside TIERED/TOU/FULL_TOU.
	ErrUnknownPlanType = errors.New("unknown plan type")
)
