package services

import (
	"time"

	"github.com/ysyyds1688-maker/drinktea_api/shared"
)

// The two restriction families share one escalation mechanism and differ only
// in their policy tables. The breakpoints below encode policy, not incidental
// detail: no-shows escalate faster than cancellations, and report-based
// provider freezes escalate faster than either.

// PolicyTier maps a cumulative count threshold to a violation level. A tier
// only applies once the user's count reaches MinCount and their highest
// historical level reaches MinPrevLevel.
type PolicyTier struct {
	MinCount     int
	MinPrevLevel int
	Level        int
}

// ViolationPolicy is the full policy table for one restriction family.
type ViolationPolicy struct {
	// Tiers per restriction type, ordered highest level first.
	Tiers map[string][]PolicyTier
	// Freeze duration in days per restriction type and level. -1 is permanent.
	Durations map[string]map[int]int
	// Restriction types that are permanent regardless of level.
	Permanent map[string]bool
}

const (
	// PermanentFreeze marks a freeze with no scheduled end.
	PermanentFreeze = -1

	defaultFreezeDays = 30
)

// Severe-violation ceilings. Crossing any of these triggers an immediate
// permanent provider freeze, bypassing the report_limit level table.
const (
	SevereNotRealPersonCeiling = 3
	SevereScamCeiling          = 3
	SevereFakeProfileCeiling   = 5
)

// Level computes the violation level for a cumulative count. Returns 0 when
// no tier applies (no violation).
func (p *ViolationPolicy) Level(restrictionType string, currentCount, previousLevel int) int {
	for _, tier := range p.Tiers[restrictionType] {
		if currentCount >= tier.MinCount && previousLevel >= tier.MinPrevLevel {
			return tier.Level
		}
	}
	return 0
}

// FreezeDays returns the freeze duration in days for a level, or
// PermanentFreeze. Level 4 is always permanent, whatever the type.
func (p *ViolationPolicy) FreezeDays(restrictionType string, level int) int {
	if p.Permanent[restrictionType] {
		return PermanentFreeze
	}
	if byLevel, ok := p.Durations[restrictionType]; ok {
		if days, ok := byLevel[level]; ok {
			return days
		}
	}
	if level >= 4 {
		return PermanentFreeze
	}
	return defaultFreezeDays
}

// ClientPolicy governs booking restrictions (cancellations and no-shows).
var ClientPolicy = &ViolationPolicy{
	Tiers: map[string][]PolicyTier{
		shared.RestrictionCancellationLimit: {
			{MinCount: 10, MinPrevLevel: 0, Level: 4},
			{MinCount: 9, MinPrevLevel: 2, Level: 3},
			{MinCount: 6, MinPrevLevel: 1, Level: 2},
			{MinCount: 3, MinPrevLevel: 0, Level: 1},
		},
		// No level-3 tier for no-shows: the jump from a season freeze to a
		// year-long one happens at level 2.
		shared.RestrictionNoShow: {
			{MinCount: 6, MinPrevLevel: 0, Level: 4},
			{MinCount: 5, MinPrevLevel: 1, Level: 2},
			{MinCount: 3, MinPrevLevel: 0, Level: 1},
		},
	},
	Durations: map[string]map[int]int{
		shared.RestrictionCancellationLimit: {1: 30, 2: 180, 3: 365, 4: PermanentFreeze},
		shared.RestrictionNoShow:            {1: 30, 2: 365, 4: PermanentFreeze},
		shared.RestrictionManual:            {1: 30, 2: 180, 3: 365, 4: PermanentFreeze},
	},
	Permanent: map[string]bool{},
}

// ProviderPolicy governs provider restrictions (accumulated reports).
var ProviderPolicy = &ViolationPolicy{
	Tiers: map[string][]PolicyTier{
		shared.RestrictionReportLimit: {
			{MinCount: 12, MinPrevLevel: 0, Level: 4},
			{MinCount: 9, MinPrevLevel: 2, Level: 3},
			{MinCount: 6, MinPrevLevel: 1, Level: 2},
			{MinCount: 3, MinPrevLevel: 0, Level: 1},
		},
	},
	Durations: map[string]map[int]int{
		shared.RestrictionReportLimit: {1: 30, 2: 180, 3: 365, 4: PermanentFreeze},
		shared.RestrictionManual:      {1: 30, 2: 180, 3: 365, 4: PermanentFreeze},
	},
	Permanent: map[string]bool{
		shared.RestrictionSevereViolation: true,
	},
}

// CalculateViolationLevel computes the booking-side level for a client's
// cumulative count of the given restriction type.
func CalculateViolationLevel(currentCount int, restrictionType string, previousLevel int) int {
	return ClientPolicy.Level(restrictionType, currentCount, previousLevel)
}

// CalculateFreezeDuration returns the booking-side freeze duration in days.
func CalculateFreezeDuration(level int, restrictionType string) int {
	return ClientPolicy.FreezeDays(restrictionType, level)
}

// CalculateProviderViolationLevel computes the level for a provider's total
// report count.
func CalculateProviderViolationLevel(currentCount, previousLevel int) int {
	return ProviderPolicy.Level(shared.RestrictionReportLimit, currentCount, previousLevel)
}

// CalculateProviderFreezeDuration returns the provider-side freeze duration
// in days. severe_violation is always permanent.
func CalculateProviderFreezeDuration(level int, restrictionType string) int {
	return ProviderPolicy.FreezeDays(restrictionType, level)
}

// IsSevereViolation reports whether type-specific report counts crossed a
// hard ceiling, which freezes the provider permanently regardless of the
// report_limit level curve.
func IsSevereViolation(notRealPersonCount, scamCount, fakeProfileCount int) bool {
	return notRealPersonCount >= SevereNotRealPersonCeiling ||
		scamCount >= SevereScamCeiling ||
		fakeProfileCount >= SevereFakeProfileCeiling
}

// AutoUnfreezeTime converts a freeze duration into an absolute unfreeze
// timestamp. Returns nil for permanent freezes.
func AutoUnfreezeTime(from time.Time, freezeDays int) *time.Time {
	if freezeDays == PermanentFreeze {
		return nil
	}
	t := from.AddDate(0, 0, freezeDays)
	return &t
}
