// Package normalize flattens nested GraphQL responses into typed records.
// Each function matches one query shape; a response missing a field the
// shape requires yields a DataShapeError for that entry, which is skipped
// and reported without aborting the batch.
package normalize

import (
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/yourorg/stake-concentration/internal/model"
)

// DataShapeError reports a response entry missing a field required by the
// query shape it was decoded from.
type DataShapeError struct {
	Entity string
	Field  string
	Index  int
}

func (e *DataShapeError) Error() string {
	return fmt.Sprintf("response shape mismatch: %s[%d] missing %s", e.Entity, e.Index, e.Field)
}

// envelope is the outer response body.
type envelope struct {
	Data json.RawMessage `json:"data"`
}

type providerEntry struct {
	Slug     string `json:"slug"`
	Name     string `json:"name"`
	IsActive *bool  `json:"isActive"`
}

type metricEntry struct {
	MetricKey    string   `json:"metricKey"`
	Label        string   `json:"label"`
	DefaultValue *float64 `json:"defaultValue"`
	CreatedAt    string   `json:"createdAt"`
}

type rewardOptionEntry struct {
	ID        string          `json:"id"`
	Providers []providerEntry `json:"providers"`
	Metrics   []metricEntry   `json:"metrics"`
}

type assetEntry struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Slug        string        `json:"slug"`
	Description string        `json:"description"`
	Symbol      string        `json:"symbol"`
	Metrics     []metricEntry `json:"metrics"`
}

func decodeData(raw json.RawMessage, out any) error {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("decoding response envelope: %w", err)
	}
	if len(env.Data) == 0 {
		return &DataShapeError{Entity: "response", Field: "data"}
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decoding response data: %w", err)
	}
	return nil
}

// RecordOptions controls provider record flattening.
type RecordOptions struct {
	// IsActive, when set, drops records whose provider activity flag does
	// not match. The upstream query cannot express this predicate, so the
	// filter runs after flattening.
	IsActive *bool
}

// ProviderRecords flattens a rewardOptions response into per-provider
// records. Reward options without a providers entry contribute nothing; an
// entry with a providers list but no slug is reported as an anomaly and
// skipped. When a reward option carries several entries for the same metric
// key, the first by response order wins.
func ProviderRecords(raw json.RawMessage, opts RecordOptions) ([]model.ProviderRecord, []DataShapeError, error) {
	var data struct {
		RewardOptions []rewardOptionEntry `json:"rewardOptions"`
	}
	if err := decodeData(raw, &data); err != nil {
		return nil, nil, err
	}

	var records []model.ProviderRecord
	var anomalies []DataShapeError
	for i, ro := range data.RewardOptions {
		if len(ro.Providers) == 0 {
			continue
		}
		provider := ro.Providers[0]
		if provider.Slug == "" {
			anomalies = append(anomalies, DataShapeError{Entity: "rewardOptions", Field: "providers.slug", Index: i})
			continue
		}

		var staked, rate *float64
		for _, m := range ro.Metrics {
			switch m.MetricKey {
			case "staked_tokens":
				if staked == nil {
					staked = m.DefaultValue
				}
			case "reward_rate":
				if rate == nil {
					rate = m.DefaultValue
				}
			}
		}

		records = append(records, model.ProviderRecord{
			ProviderSlug: provider.Slug,
			DisplayName:  provider.Name,
			IsActive:     provider.IsActive,
			StakedTokens: staked,
			RewardRate:   rate,
		})
	}

	if opts.IsActive != nil {
		filtered := records[:0]
		for _, r := range records {
			if r.IsActive != nil && *r.IsActive == *opts.IsActive {
				filtered = append(filtered, r)
			}
		}
		records = filtered
	}

	for _, a := range anomalies {
		logrus.WithFields(logrus.Fields{
			"entity": a.Entity,
			"field":  a.Field,
			"index":  a.Index,
		}).Warn("Skipped malformed response entry")
	}
	return records, anomalies, nil
}

// TotalStakedTokens extracts the asset-level aggregate staked_tokens value.
// nil is returned when the asset or its metric is absent; missing data is
// distinct from a reported zero.
func TotalStakedTokens(raw json.RawMessage) (*float64, error) {
	var data struct {
		Assets []assetEntry `json:"assets"`
	}
	if err := decodeData(raw, &data); err != nil {
		return nil, err
	}
	if len(data.Assets) == 0 || len(data.Assets[0].Metrics) == 0 {
		return nil, nil
	}
	return data.Assets[0].Metrics[0].DefaultValue, nil
}

// Assets decodes an assets response.
func Assets(raw json.RawMessage) ([]model.Asset, error) {
	var data struct {
		Assets []assetEntry `json:"assets"`
	}
	if err := decodeData(raw, &data); err != nil {
		return nil, err
	}
	assets := make([]model.Asset, 0, len(data.Assets))
	for _, a := range data.Assets {
		assets = append(assets, model.Asset{
			ID:          a.ID,
			Name:        a.Name,
			Slug:        a.Slug,
			Description: a.Description,
			Symbol:      a.Symbol,
		})
	}
	return assets, nil
}

// AssetMetrics extracts the metric entries of the first asset in an
// asset-with-metrics response.
func AssetMetrics(raw json.RawMessage) ([]model.MetricValue, error) {
	var data struct {
		Assets []assetEntry `json:"assets"`
	}
	if err := decodeData(raw, &data); err != nil {
		return nil, err
	}
	if len(data.Assets) == 0 {
		return nil, nil
	}
	return metricValues(data.Assets[0].Metrics), nil
}

// MetricValues decodes a top-level metrics response.
func MetricValues(raw json.RawMessage) ([]model.MetricValue, error) {
	var data struct {
		Metrics []metricEntry `json:"metrics"`
	}
	if err := decodeData(raw, &data); err != nil {
		return nil, err
	}
	return metricValues(data.Metrics), nil
}

// ProviderRewardRates flattens a providers response into records carrying
// each provider's first reward-option metric. Providers with no reward
// options or metrics keep a nil rate rather than being dropped.
func ProviderRewardRates(raw json.RawMessage) ([]model.ProviderRecord, error) {
	var data struct {
		Providers []struct {
			Slug          string `json:"slug"`
			Name          string `json:"name"`
			RewardOptions []struct {
				Metrics []metricEntry `json:"metrics"`
			} `json:"rewardOptions"`
		} `json:"providers"`
	}
	if err := decodeData(raw, &data); err != nil {
		return nil, err
	}

	var records []model.ProviderRecord
	for _, p := range data.Providers {
		if p.Slug == "" {
			continue
		}
		var rate *float64
		if len(p.RewardOptions) > 0 && len(p.RewardOptions[0].Metrics) > 0 {
			rate = p.RewardOptions[0].Metrics[0].DefaultValue
		}
		records = append(records, model.ProviderRecord{
			ProviderSlug: p.Slug,
			DisplayName:  p.Name,
			RewardRate:   rate,
		})
	}
	return records, nil
}

func metricValues(entries []metricEntry) []model.MetricValue {
	values := make([]model.MetricValue, 0, len(entries))
	for _, m := range entries {
		values = append(values, model.MetricValue{
			MetricKey:    m.MetricKey,
			Label:        m.Label,
			DefaultValue: m.DefaultValue,
			CreatedAt:    m.CreatedAt,
		})
	}
	return values
}
