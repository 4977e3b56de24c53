// Package aggregate computes concentration statistics over flattened
// provider records: stake shares, Lorenz curve, Gini coefficient, HHI and
// Nakamoto coefficient. Degenerate inputs (empty batch, zero total, single
// provider) produce null statistics instead of errors; "no meaningful
// concentration" is a valid analytical outcome.
package aggregate

import (
	"sort"

	"github.com/yourorg/stake-concentration/internal/model"
)

// Options tunes report computation.
type Options struct {
	// IncludeUntrackedInHHI treats the untracked remainder as a single
	// additional competitor when summing squared shares. Default: excluded.
	IncludeUntrackedInHHI bool
}

// aggregated is one provider after grouping records by slug.
type aggregated struct {
	slug  string
	name  string
	stake *float64 // nil when every record for this slug had a null stake
	rate  *float64 // first non-null reward rate across the slug's records
}

// Report computes the concentration report for a batch of provider records
// and the asset's independently fetched aggregate total.
func Report(records []model.ProviderRecord, total *float64, opts Options) model.ConcentrationReport {
	providers := groupBySlug(records)

	// Tracked stake is the sum over aggregated providers, not the upstream
	// aggregate; the two can diverge and the difference is the untracked part.
	tracked := 0.0
	for _, p := range providers {
		if p.stake != nil {
			tracked += *p.stake
		}
	}

	var untracked, untrackedShare *float64
	if total != nil {
		u := *total - tracked
		if u < 0 {
			u = 0
		}
		untracked = &u
		if *total > 0 {
			s := u / *total
			untrackedShare = &s
		}
	}

	// Reporting order is descending by stake with null stakes last.
	sort.SliceStable(providers, func(i, j int) bool {
		si, sj := providers[i].stake, providers[j].stake
		if si == nil {
			return false
		}
		if sj == nil {
			return true
		}
		return *si > *sj
	})

	shares := make([]model.ProviderShare, 0, len(providers))
	for _, p := range providers {
		var share *float64
		if total != nil && *total > 0 && p.stake != nil {
			s := *p.stake / *total
			share = &s
		}
		shares = append(shares, model.ProviderShare{
			ProviderSlug: p.slug,
			DisplayName:  p.name,
			StakedTokens: p.stake,
			RewardRate:   p.rate,
			Share:        share,
		})
	}

	// The statistics run over the non-null stake vector only.
	stakes := make([]float64, 0, len(providers))
	for _, p := range providers {
		if p.stake != nil {
			stakes = append(stakes, *p.stake)
		}
	}

	report := model.ConcentrationReport{
		TotalStakedTokens:     total,
		TrackedStakedTokens:   tracked,
		UntrackedStakedTokens: untracked,
		UntrackedShare:        untrackedShare,
		Providers:             shares,
		LorenzCurve:           Lorenz(stakes),
		Gini:                  Gini(stakes),
		NakamotoCoefficient:   Nakamoto(stakes, total),
	}
	report.HHI = hhi(shares, untrackedShare, opts)
	return report
}

// groupBySlug sums stakes per distinct provider slug, preserving first-seen
// order. A null stake counts as zero for the sum, but a slug whose records
// are all null keeps a null aggregate so it is excluded from the statistics
// while still being reported.
func groupBySlug(records []model.ProviderRecord) []aggregated {
	index := make(map[string]int, len(records))
	var providers []aggregated
	for _, r := range records {
		i, ok := index[r.ProviderSlug]
		if !ok {
			index[r.ProviderSlug] = len(providers)
			providers = append(providers, aggregated{slug: r.ProviderSlug, name: r.DisplayName})
			i = len(providers) - 1
		}
		p := &providers[i]
		if p.name == "" && r.DisplayName != "" {
			p.name = r.DisplayName
		}
		if r.StakedTokens != nil {
			if p.stake == nil {
				p.stake = new(float64)
			}
			*p.stake += *r.StakedTokens
		}
		if p.rate == nil && r.RewardRate != nil {
			v := *r.RewardRate
			p.rate = &v
		}
	}
	return providers
}

// Lorenz returns the Lorenz curve over the stake vector: cumulative share
// of stake against cumulative fraction of providers, ascending by stake and
// anchored at (0, 0). The curve is nil when no stake is present.
func Lorenz(stakes []float64) []model.LorenzPoint {
	n := len(stakes)
	if n == 0 {
		return nil
	}
	sorted := append([]float64(nil), stakes...)
	sort.Float64s(sorted)

	sum := 0.0
	for _, s := range sorted {
		sum += s
	}
	if sum == 0 {
		return nil
	}

	points := make([]model.LorenzPoint, 0, n+1)
	points = append(points, model.LorenzPoint{})
	cum := 0.0
	for i, s := range sorted {
		cum += s
		points = append(points, model.LorenzPoint{
			PopulationShare: float64(i+1) / float64(n),
			StakeShare:      cum / sum,
		})
	}
	return points
}

// Gini computes the Gini coefficient of the stake vector using the discrete
// formula over ascending-sorted values. Input order does not matter. nil is
// returned when the vector is empty or sums to zero.
func Gini(stakes []float64) *float64 {
	n := len(stakes)
	if n == 0 {
		return nil
	}
	sorted := append([]float64(nil), stakes...)
	sort.Float64s(sorted)

	var sum, weighted float64
	for i, s := range sorted {
		sum += s
		weighted += float64(i+1) * s
	}
	if sum == 0 {
		return nil
	}

	g := 2*weighted/(float64(n)*sum) - float64(n+1)/float64(n)
	return &g
}

// Nakamoto returns the smallest number of top providers whose cumulative
// stake strictly exceeds half the aggregate total. When even the full
// tracked set cannot exceed it (a large untracked share), the coefficient
// is nil rather than extrapolated.
func Nakamoto(stakes []float64, total *float64) *int {
	if total == nil || *total <= 0 || len(stakes) == 0 {
		return nil
	}
	sorted := append([]float64(nil), stakes...)
	sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))

	threshold := *total / 2
	cum := 0.0
	for i, s := range sorted {
		cum += s
		if cum > threshold {
			k := i + 1
			return &k
		}
	}
	return nil
}

// hhi sums squared shares on the conventional 0-10000 scale. Only providers
// with a computable share contribute; the untracked remainder joins as one
// competitor only when configured to.
func hhi(providers []model.ProviderShare, untrackedShare *float64, opts Options) *float64 {
	sum := 0.0
	counted := 0
	for _, p := range providers {
		if p.Share == nil {
			continue
		}
		sum += (*p.Share * 100) * (*p.Share * 100)
		counted++
	}
	if counted == 0 {
		return nil
	}
	if opts.IncludeUntrackedInHHI && untrackedShare != nil {
		sum += (*untrackedShare * 100) * (*untrackedShare * 100)
	}
	return &sum
}
