// Package model defines the core data structures for the stake concentration toolkit.
package model

// ProviderRecord is one flattened reward-option/provider pair as returned by
// the StakingRewards API. This is the core data structure that flows from the
// normalizer into the concentration engine.
type ProviderRecord struct {
	// ProviderSlug is the unique identifier of the staking provider
	ProviderSlug string `json:"provider"`

	// DisplayName is the human-readable provider name, if the query selected it
	DisplayName string `json:"name,omitempty"`

	// IsActive reports the provider's activity flag; nil when not selected
	IsActive *bool `json:"is_active,omitempty"`

	// StakedTokens is the staked token amount for this reward option.
	// nil means the upstream metric entry was missing, which is distinct
	// from a reported zero.
	StakedTokens *float64 `json:"staked_tokens"`

	// RewardRate is the reward rate metric for this reward option, if fetched
	RewardRate *float64 `json:"reward_rate"`
}

// ProviderShare is one aggregated provider in a ConcentrationReport,
// ordered descending by stake.
type ProviderShare struct {
	ProviderSlug string   `json:"provider"`
	DisplayName  string   `json:"name,omitempty"`
	StakedTokens *float64 `json:"staked_tokens"`
	RewardRate   *float64 `json:"reward_rate"`

	// Share is StakedTokens divided by the asset's aggregate total.
	// nil when the total is zero/unknown or the stake is null.
	Share *float64 `json:"share"`
}

// LorenzPoint is one point on the Lorenz curve: the cumulative fraction of
// providers (smallest stake first) against the cumulative share of stake.
type LorenzPoint struct {
	PopulationShare float64 `json:"population_share"`
	StakeShare      float64 `json:"stake_share"`
}

// ConcentrationReport is the computed output of the concentration engine.
// It is built fresh per invocation and never mutated afterwards.
type ConcentrationReport struct {
	// TotalStakedTokens is the asset-level aggregate staked_tokens metric as
	// independently reported by the API. It is not the sum of the tracked
	// providers and the two can legitimately diverge.
	TotalStakedTokens *float64 `json:"total_staked_tokens"`

	// TrackedStakedTokens is the sum of the aggregated providers' stakes
	TrackedStakedTokens float64 `json:"tracked_staked_tokens"`

	// UntrackedStakedTokens is total minus tracked, clamped at zero.
	// nil when the total is unknown.
	UntrackedStakedTokens *float64 `json:"untracked_staked_tokens"`

	// UntrackedShare is untracked divided by total; nil when total is zero/unknown
	UntrackedShare *float64 `json:"untracked_share"`

	// Providers lists the aggregated providers descending by stake, nulls last
	Providers []ProviderShare `json:"providers"`

	// LorenzCurve holds the curve points, ascending by stake, starting at (0,0)
	LorenzCurve []LorenzPoint `json:"lorenz_curve"`

	// Gini is the Gini coefficient over the tracked stake vector; nil when
	// no provider has a usable stake
	Gini *float64 `json:"gini"`

	// HHI is the Herfindahl-Hirschman Index on the conventional 0-10000 scale
	HHI *float64 `json:"hhi"`

	// NakamotoCoefficient is the smallest number of top providers whose
	// cumulative share strictly exceeds half the total. nil when even the
	// full tracked set cannot exceed it.
	NakamotoCoefficient *int `json:"nakamoto_coefficient"`
}

// RewardRatePoint pairs a provider's stake with its reward rate for
// downstream regression or plotting.
type RewardRatePoint struct {
	StakedTokens float64 `json:"staked_tokens"`
	RewardRate   float64 `json:"reward_rate"`
}

// RewardRatePoints extracts (stake, reward rate) pairs from the report.
// Only providers with both values present and strictly positive are kept.
func (r ConcentrationReport) RewardRatePoints() []RewardRatePoint {
	points := make([]RewardRatePoint, 0, len(r.Providers))
	for _, p := range r.Providers {
		if p.StakedTokens == nil || p.RewardRate == nil {
			continue
		}
		if *p.StakedTokens <= 0 || *p.RewardRate <= 0 {
			continue
		}
		points = append(points, RewardRatePoint{
			StakedTokens: *p.StakedTokens,
			RewardRate:   *p.RewardRate,
		})
	}
	return points
}

// Asset is one entry from the assets query shape.
type Asset struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description,omitempty"`
	Symbol      string `json:"symbol"`
}

// MetricValue is one entry from a metrics selection.
type MetricValue struct {
	MetricKey    string   `json:"metric_key,omitempty"`
	Label        string   `json:"label,omitempty"`
	DefaultValue *float64 `json:"default_value"`
	CreatedAt    string   `json:"created_at,omitempty"`
}

// Float returns a pointer to v. Convenience for building nullable values.
func Float(v float64) *float64 { return &v }

// Bool returns a pointer to b.
func Bool(b bool) *bool { return &b }
