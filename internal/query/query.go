// Package query builds the GraphQL query strings used against the
// StakingRewards public API. Builders have no side effects: each returns an
// immutable Spec that is executed exactly once by the fetch client.
package query

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Spec is one parameterized API call: the query text plus its variables.
type Spec struct {
	// Query is the GraphQL document
	Query string

	// Variables carries GraphQL variables; nil for the inline-argument
	// builders below, populated when callers pass their own documents
	Variables map[string]any
}

// CacheKey returns a deterministic digest of the spec, usable as a cache
// file name. Two specs with the same query text and variables always map to
// the same key.
func (s Spec) CacheKey() string {
	vars := s.Variables
	if vars == nil {
		vars = map[string]any{}
	}
	payload, _ := json.Marshal(map[string]any{
		"query":     strings.TrimSpace(s.Query),
		"variables": vars,
	})
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// Raw wraps a caller-supplied GraphQL document 1:1.
func Raw(q string) Spec {
	return Spec{Query: q}
}

// jsonValue renders v as a GraphQL literal. The upstream schema accepts
// JSON-style scalars and lists, so encoding/json does the quoting.
func jsonValue(v any) string {
	b, _ := json.Marshal(v)
	return string(b)
}

// arg is one key/value pair inside a where or order clause. Clauses are kept
// as ordered slices rather than maps so the rendered query text is stable.
type arg struct {
	key   string
	value string
}

func renderClause(args []arg) string {
	parts := make([]string, 0, len(args))
	for _, a := range args {
		parts = append(parts, fmt.Sprintf("%s: %s", a.key, a.value))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// AssetsOptions filters the assets query. Zero values are omitted from the
// predicate entirely rather than encoded as null filters.
type AssetsOptions struct {
	// Symbols filters by asset symbols; caller order is preserved
	Symbols []string

	// Limit caps the number of results; zero means no limit clause
	Limit int

	// Where carries additional raw where conditions, rendered in sorted key
	// order for determinism
	Where map[string]any
}

// Assets builds the assets query shape.
func Assets(opts AssetsOptions) Spec {
	var where []arg
	keys := make([]string, 0, len(opts.Where))
	for k := range opts.Where {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		where = append(where, arg{k, jsonValue(opts.Where[k])})
	}
	if len(opts.Symbols) > 0 {
		where = append(where, arg{"symbols", jsonValue(opts.Symbols)})
	}

	var args []string
	if len(where) > 0 {
		args = append(args, "where: "+renderClause(where))
	}
	if opts.Limit > 0 {
		args = append(args, fmt.Sprintf("limit: %d", opts.Limit))
	}
	argsStr := ""
	if len(args) > 0 {
		argsStr = "(" + strings.Join(args, ", ") + ")"
	}

	return Spec{Query: fmt.Sprintf(`{
  assets%s {
    id
    name
    slug
    description
    symbol
  }
}`, argsStr)}
}

// AssetMetricsOptions filters the metrics selection of a single asset.
type AssetMetricsOptions struct {
	// MetricKeys filters metrics by key, e.g. ["reward_rate"]
	MetricKeys []string

	// CreatedBefore keeps metrics created before this ISO date, e.g. "2023-06-28"
	CreatedBefore string

	// Limit caps the number of metric entries; zero means no limit clause
	Limit int

	// Order overrides the sort order; defaults to createdAt descending
	Order []OrderClause
}

// OrderClause is one order key/direction pair, e.g. {Key: "createdAt", Direction: "desc"}.
type OrderClause struct {
	Key       string
	Direction string
}

// AssetMetrics builds the asset-with-metrics query shape for one asset slug.
func AssetMetrics(slug string, opts AssetMetricsOptions) Spec {
	var where []arg
	if len(opts.MetricKeys) > 0 {
		where = append(where, arg{"metricKeys", jsonValue(opts.MetricKeys)})
	}
	if opts.CreatedBefore != "" {
		where = append(where, arg{"createdAt_lt", jsonValue(opts.CreatedBefore)})
	}

	var args []string
	if len(where) > 0 {
		args = append(args, "where: "+renderClause(where))
	}
	if opts.Limit > 0 {
		args = append(args, fmt.Sprintf("limit: %d", opts.Limit))
	}

	order := opts.Order
	if len(order) == 0 {
		order = []OrderClause{{Key: "createdAt", Direction: "desc"}}
	}
	orderArgs := make([]arg, 0, len(order))
	for _, o := range order {
		orderArgs = append(orderArgs, arg{o.Key, o.Direction})
	}
	args = append(args, "order: "+renderClause(orderArgs))

	return Spec{Query: fmt.Sprintf(`{
  assets(where: {slugs: [%s]}, limit: 1) {
    id
    slug
    logoUrl
    metrics(%s) {
      defaultValue
      createdAt
    }
  }
}`, jsonValue(slug), strings.Join(args, ", "))}
}

// Validators builds the active-validators lookup for one asset symbol.
func Validators(symbol string, limit int) Spec {
	if limit <= 0 {
		limit = 1
	}
	return Spec{Query: fmt.Sprintf(`{
  assets(where: { symbols: [%s] }, limit: 1) {
    id
    name
    slug
    description
    symbol
    metrics(where: { metricKeys: ["active_validators"] }, limit: %d) {
      metricKey
      label
      defaultValue
    }
  }
}`, jsonValue(symbol), limit)}
}

// ProviderStakedTokens builds the reward-options query that lists every
// provider for an asset together with its staked_tokens metric. Activity
// filtering is not expressible server-side and happens after flattening.
func ProviderStakedTokens(assetSlug string, limit int) Spec {
	if limit <= 0 {
		limit = 100
	}
	return Spec{Query: fmt.Sprintf(`{
  rewardOptions(
    where: {
      inputAsset: { slugs: [%s] }
      typeKeys: ["pos"]
    }
    limit: %d
    order: { metricKey_desc: "staked_tokens" }
  ) {
    id
    providers(limit: 1) {
      slug
      isActive
    }
    metrics(where: { metricKeys: ["staked_tokens"] }, limit: 1) {
      metricKey
      defaultValue
    }
  }
}`, jsonValue(assetSlug), limit)}
}

// StakeShares builds the reward-options query backing the concentration
// report: provider slug, name and activity flag plus the staked_tokens and,
// optionally, reward_rate metrics.
func StakeShares(assetSlug string, limit int, includeRewardRate bool) Spec {
	if limit <= 0 {
		limit = 200
	}
	metricKeys := []string{"staked_tokens"}
	if includeRewardRate {
		metricKeys = append(metricKeys, "reward_rate")
	}
	return Spec{Query: fmt.Sprintf(`{
  rewardOptions(
    where: {
      inputAsset: { slugs: [%s] }
      typeKeys: ["pos"]
    }
    limit: %d
    order: { metricKey_desc: "staked_tokens" }
  ) {
    providers(limit: 1) {
      slug
      name
      isActive
    }
    metrics(where: { metricKeys: %s }, limit: 5) {
      metricKey
      defaultValue
    }
  }
}`, jsonValue(assetSlug), limit, jsonValue(metricKeys))}
}

// ProviderStakeForAsset builds the lookup of one provider's staked tokens on
// a given asset. validatorsLimit > 0 additionally selects that many
// validators per reward option.
func ProviderStakeForAsset(providerSlug, assetSlug string, limit, validatorsLimit int) Spec {
	if limit <= 0 {
		limit = 20
	}
	validatorsBlock := ""
	if validatorsLimit > 0 {
		validatorsBlock = fmt.Sprintf(`
    validators(limit: %d) {
      id
      address
    }`, validatorsLimit)
	}
	return Spec{Query: fmt.Sprintf(`{
  rewardOptions(
    where: {
      providers: { slugs: [%s] }
      inputAsset: { slugs: [%s] }
      typeKeys: ["pos"]
    }
    limit: %d
    order: { metricKey_desc: "staked_tokens" }
  ) {
    id
    inputAssets(limit: 1) { slug }
    providers(limit: 1) { slug }
    metrics(where: { metricKeys: ["staked_tokens"] }, limit: 2) {
      defaultValue
    }%s
  }
}`, jsonValue(providerSlug), jsonValue(assetSlug), limit, validatorsBlock)}
}

// TotalStakedTokens builds the asset-level aggregate staked_tokens lookup.
// The newest metric comes first; metricsLimit 1 fetches only the latest.
func TotalStakedTokens(assetSlug string, metricsLimit int) Spec {
	if metricsLimit <= 0 {
		metricsLimit = 1
	}
	return Spec{Query: fmt.Sprintf(`{
  assets(where: { slugs: [%s] }, limit: 1) {
    slug
    metrics(
      where: { metricKeys: ["staked_tokens"] }
      order: { createdAt: desc }
      limit: %d
    ) {
      metricKey
      defaultValue
      createdAt
    }
  }
}`, jsonValue(assetSlug), metricsLimit)}
}

// ProvidersOptions filters the providers-for-asset query shape.
type ProvidersOptions struct {
	// IsVerified filters for verified providers; defaults to true
	IsVerified *bool

	// OrderByMetric orders providers descending by this metric key;
	// defaults to assets_under_management
	OrderByMetric string

	// Limit caps the number of providers; zero means 10
	Limit int

	// MetricKeys selects the reward-option metrics to fetch;
	// defaults to ["reward_rate"]
	MetricKeys []string
}

// Providers builds the providers query for one asset.
func Providers(assetSlug string, opts ProvidersOptions) Spec {
	isVerified := true
	if opts.IsVerified != nil {
		isVerified = *opts.IsVerified
	}
	orderBy := opts.OrderByMetric
	if orderBy == "" {
		orderBy = "assets_under_management"
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}
	metricKeys := opts.MetricKeys
	if len(metricKeys) == 0 {
		metricKeys = []string{"reward_rate"}
	}

	assetFilter := fmt.Sprintf("{inputAsset: {slugs: [%s]}}", jsonValue(assetSlug))
	return Spec{Query: fmt.Sprintf(`{
  providers(
    where: {rewardOptions: %s, isVerified: %s}
    order: {metricKey_desc: %s}
    limit: %d
  ) {
    slug
    name
    rewardOptions(
      where: %s
      limit: 1
    ) {
      metrics(
        where: {metricKeys: %s}
        limit: 1
      ) {
        defaultValue
      }
    }
  }
}`, assetFilter, jsonValue(isVerified), jsonValue(orderBy), limit, assetFilter, jsonValue(metricKeys))}
}

// MetricsOptions scopes the global metrics query. Unlike the other builders,
// unset scope filters are rendered as explicit nulls because the upstream
// schema requires all four keys: all-null scopes select global market metrics.
type MetricsOptions struct {
	Asset        *string
	Provider     *string
	RewardOption *string
	Validator    *string

	// MetricKeys defaults to ["marketcap"]
	MetricKeys []string

	// Limit caps the number of metric entries; zero means 1
	Limit int
}

// Metrics builds the metrics-with-filters query shape.
func Metrics(opts MetricsOptions) Spec {
	metricKeys := opts.MetricKeys
	if len(metricKeys) == 0 {
		metricKeys = []string{"marketcap"}
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = 1
	}

	nullable := func(v *string) string {
		if v == nil {
			return "null"
		}
		return jsonValue(*v)
	}
	where := []arg{
		{"asset", nullable(opts.Asset)},
		{"provider", nullable(opts.Provider)},
		{"rewardOption", nullable(opts.RewardOption)},
		{"validator", nullable(opts.Validator)},
		{"metricKeys", jsonValue(metricKeys)},
	}

	return Spec{Query: fmt.Sprintf(`{
  metrics(
    where: %s
    limit: %d
  ) {
    defaultValue
    changeAbsolutes
    changePercentages
    createdAt
  }
}`, renderClause(where), limit)}
}
