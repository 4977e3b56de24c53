package stakingrewards

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/stake-concentration/internal/fetch"
	"github.com/yourorg/stake-concentration/internal/model"
	"github.com/yourorg/stake-concentration/internal/query"
)

// stakingAPIStub serves canned responses keyed on the query shape.
func stakingAPIStub(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Query string `json:"query"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		switch {
		case strings.Contains(req.Query, "rewardOptions"):
			w.Write([]byte(`{"data":{"rewardOptions":[
			  {"providers":[{"slug":"everstake","name":"Everstake","isActive":true}],
			   "metrics":[{"metricKey":"staked_tokens","defaultValue":500},
			              {"metricKey":"reward_rate","defaultValue":0.068}]},
			  {"providers":[{"slug":"kiln","name":"Kiln","isActive":true}],
			   "metrics":[{"metricKey":"staked_tokens","defaultValue":300}]},
			  {"providers":[{"slug":"laminated","name":"Laminated","isActive":false}],
			   "metrics":[{"metricKey":"staked_tokens","defaultValue":9999}]},
			  {"providers":[{"slug":"chorus-one","name":"Chorus One","isActive":true}],
			   "metrics":[{"metricKey":"staked_tokens","defaultValue":200}]}
			]}}`))
		case strings.Contains(req.Query, "staked_tokens"):
			w.Write([]byte(`{"data":{"assets":[
			  {"slug":"solana","metrics":[{"metricKey":"staked_tokens","defaultValue":1000,"createdAt":"2024-05-01"}]}
			]}}`))
		default:
			w.Write([]byte(`{"data":{"assets":[
			  {"id":"1","name":"Solana","slug":"solana","symbol":"SOL"}
			]}}`))
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestClient(t *testing.T) *Client {
	t.Helper()
	server := stakingAPIStub(t)
	client, err := New("test-key", fetch.WithEndpoint(server.URL), fetch.WithBillingURL(server.URL+"/billing"))
	require.NoError(t, err)
	return client
}

func TestProviderStakeShares_EndToEnd(t *testing.T) {
	client := newTestClient(t)

	report, err := client.ProviderStakeShares(context.Background(), "solana", ShareOptions{
		IsActive:          model.Bool(true),
		IncludeRewardRate: true,
	})
	require.NoError(t, err)

	// The inactive provider is filtered out client-side
	require.Len(t, report.Providers, 3)
	assert.Equal(t, "everstake", report.Providers[0].ProviderSlug)
	assert.Equal(t, "kiln", report.Providers[1].ProviderSlug)
	assert.Equal(t, "chorus-one", report.Providers[2].ProviderSlug)

	require.NotNil(t, report.TotalStakedTokens)
	assert.Equal(t, 1000.0, *report.TotalStakedTokens)
	assert.Equal(t, 1000.0, report.TrackedStakedTokens)

	assert.InDelta(t, 0.5, *report.Providers[0].Share, 1e-12)
	assert.InDelta(t, 0.3, *report.Providers[1].Share, 1e-12)
	assert.InDelta(t, 0.2, *report.Providers[2].Share, 1e-12)

	require.NotNil(t, report.Providers[0].RewardRate)
	assert.Equal(t, 0.068, *report.Providers[0].RewardRate)

	require.NotNil(t, report.HHI)
	assert.InDelta(t, 3800, *report.HHI, 1e-9)
	require.NotNil(t, report.NakamotoCoefficient)
	assert.Equal(t, 2, *report.NakamotoCoefficient)
	require.NotNil(t, report.Gini)

	// Serializable as a flat structure for the presentation layer
	out, err := json.Marshal(report)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"nakamoto_coefficient":2`)
}

func TestProviderStakedTokens_ActivityFilter(t *testing.T) {
	client := newTestClient(t)

	all, err := client.ProviderStakedTokens(context.Background(), "solana", 100, nil)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	active, err := client.ProviderStakedTokens(context.Background(), "solana", 100, model.Bool(true))
	require.NoError(t, err)
	assert.Len(t, active, 3)
}

func TestAssets(t *testing.T) {
	client := newTestClient(t)

	assets, err := client.Assets(context.Background(), query.AssetsOptions{Symbols: []string{"SOL"}, Limit: 1})
	require.NoError(t, err)
	require.Len(t, assets, 1)
	assert.Equal(t, "solana", assets[0].Slug)
	assert.Equal(t, "SOL", assets[0].Symbol)
}
