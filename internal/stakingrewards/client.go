// Package stakingrewards is the high-level client for the StakingRewards
// API: it stitches query construction, transport, normalization and the
// concentration engine into one call per use case.
package stakingrewards

import (
	"context"
	"encoding/json"

	"github.com/sirupsen/logrus"

	"github.com/yourorg/stake-concentration/internal/aggregate"
	"github.com/yourorg/stake-concentration/internal/fetch"
	"github.com/yourorg/stake-concentration/internal/model"
	"github.com/yourorg/stake-concentration/internal/normalize"
	"github.com/yourorg/stake-concentration/internal/query"
)

// Client wraps the transport with typed query methods.
type Client struct {
	api *fetch.Client
}

// New creates a client. The API key is passed explicitly; loading it from
// the environment belongs to the entrypoint.
func New(apiKey string, opts ...fetch.Option) (*Client, error) {
	api, err := fetch.New(apiKey, opts...)
	if err != nil {
		return nil, err
	}
	return &Client{api: api}, nil
}

// Assets queries assets by symbol or arbitrary where conditions.
func (c *Client) Assets(ctx context.Context, opts query.AssetsOptions) ([]model.Asset, error) {
	raw, err := c.api.Execute(ctx, query.Assets(opts))
	if err != nil {
		return nil, err
	}
	return normalize.Assets(raw)
}

// AssetMetrics queries one asset's metric time series, newest first unless
// the caller overrides the order.
func (c *Client) AssetMetrics(ctx context.Context, slug string, opts query.AssetMetricsOptions) ([]model.MetricValue, error) {
	raw, err := c.api.Execute(ctx, query.AssetMetrics(slug, opts))
	if err != nil {
		return nil, err
	}
	return normalize.AssetMetrics(raw)
}

// Validators queries the active_validators metric for an asset symbol.
func (c *Client) Validators(ctx context.Context, symbol string, limit int) ([]model.MetricValue, error) {
	raw, err := c.api.Execute(ctx, query.Validators(symbol, limit))
	if err != nil {
		return nil, err
	}
	return normalize.AssetMetrics(raw)
}

// Providers queries verified providers for an asset with their first
// reward-option metric.
func (c *Client) Providers(ctx context.Context, assetSlug string, opts query.ProvidersOptions) ([]model.ProviderRecord, error) {
	raw, err := c.api.Execute(ctx, query.Providers(assetSlug, opts))
	if err != nil {
		return nil, err
	}
	return normalize.ProviderRewardRates(raw)
}

// ProviderStakedTokens lists every tracked provider for an asset with its
// staked token amount. isActive filters client-side after flattening; nil
// skips the filter.
func (c *Client) ProviderStakedTokens(ctx context.Context, assetSlug string, limit int, isActive *bool) ([]model.ProviderRecord, error) {
	raw, err := c.api.Execute(ctx, query.ProviderStakedTokens(assetSlug, limit))
	if err != nil {
		return nil, err
	}
	records, anomalies, err := normalize.ProviderRecords(raw, normalize.RecordOptions{IsActive: isActive})
	if err != nil {
		return nil, err
	}
	if len(anomalies) > 0 {
		logrus.WithFields(logrus.Fields{
			"asset":     assetSlug,
			"anomalies": len(anomalies),
		}).Warn("Some reward options were skipped during flattening")
	}
	return records, nil
}

// ProviderStakeForAsset looks up one provider's staked tokens on an asset.
func (c *Client) ProviderStakeForAsset(ctx context.Context, providerSlug, assetSlug string, limit, validatorsLimit int) ([]model.ProviderRecord, error) {
	raw, err := c.api.Execute(ctx, query.ProviderStakeForAsset(providerSlug, assetSlug, limit, validatorsLimit))
	if err != nil {
		return nil, err
	}
	records, _, err := normalize.ProviderRecords(raw, normalize.RecordOptions{})
	return records, err
}

// TotalStakedTokens fetches the asset-level aggregate staked_tokens metric.
// nil means the upstream does not report it.
func (c *Client) TotalStakedTokens(ctx context.Context, assetSlug string) (*float64, error) {
	raw, err := c.api.Execute(ctx, query.TotalStakedTokens(assetSlug, 1))
	if err != nil {
		return nil, err
	}
	return normalize.TotalStakedTokens(raw)
}

// ShareOptions configures ProviderStakeShares.
type ShareOptions struct {
	// Limit caps the number of reward options fetched; zero means 200
	Limit int

	// IsActive filters providers client-side by activity flag; nil skips
	IsActive *bool

	// IncludeRewardRate additionally fetches each provider's reward_rate
	IncludeRewardRate bool

	// IncludeUntrackedInHHI treats untracked stake as one competitor in HHI
	IncludeUntrackedInHHI bool
}

// ProviderStakeShares fetches per-provider stakes plus the asset aggregate
// and computes the full concentration report.
func (c *Client) ProviderStakeShares(ctx context.Context, assetSlug string, opts ShareOptions) (model.ConcentrationReport, error) {
	raw, err := c.api.Execute(ctx, query.StakeShares(assetSlug, opts.Limit, opts.IncludeRewardRate))
	if err != nil {
		return model.ConcentrationReport{}, err
	}
	records, anomalies, err := normalize.ProviderRecords(raw, normalize.RecordOptions{IsActive: opts.IsActive})
	if err != nil {
		return model.ConcentrationReport{}, err
	}

	total, err := c.TotalStakedTokens(ctx, assetSlug)
	if err != nil {
		return model.ConcentrationReport{}, err
	}

	report := aggregate.Report(records, total, aggregate.Options{
		IncludeUntrackedInHHI: opts.IncludeUntrackedInHHI,
	})

	logrus.WithFields(logrus.Fields{
		"asset":     assetSlug,
		"providers": len(report.Providers),
		"anomalies": len(anomalies),
	}).Debug("Computed concentration report")
	return report, nil
}

// Metrics queries scoped or global market metrics.
func (c *Client) Metrics(ctx context.Context, opts query.MetricsOptions) ([]model.MetricValue, error) {
	raw, err := c.api.Execute(ctx, query.Metrics(opts))
	if err != nil {
		return nil, err
	}
	return normalize.MetricValues(raw)
}

// ExecuteRaw runs a caller-supplied GraphQL document 1:1 and returns the
// raw response body.
func (c *Client) ExecuteRaw(ctx context.Context, q string) (json.RawMessage, error) {
	return c.api.Execute(ctx, query.Raw(q))
}

// BillingStatus returns remaining credits and plan information as reported
// by the API; the body is passed through untouched.
func (c *Client) BillingStatus(ctx context.Context) (json.RawMessage, error) {
	return c.api.BillingStatus(ctx)
}
