package fetch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/stake-concentration/internal/query"
)

func testClient(t *testing.T, handler http.HandlerFunc, opts ...Option) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	opts = append([]Option{WithEndpoint(server.URL), WithBillingURL(server.URL + "/billing")}, opts...)
	client, err := New("test-key", opts...)
	require.NoError(t, err)
	return client, server
}

func TestNew_RequiresAPIKey(t *testing.T) {
	_, err := New("")
	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
}

func TestExecute_Success(t *testing.T) {
	var gotBody map[string]any
	var gotKey, gotContentType string

	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-API-KEY")
		gotContentType = r.Header.Get("Content-Type")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Write([]byte(`{"data":{"assets":[{"slug":"solana"}]}}`))
	})

	raw, err := client.Execute(context.Background(), query.Raw("{ assets { slug } }"))
	require.NoError(t, err)

	assert.Equal(t, "test-key", gotKey)
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, "{ assets { slug } }", gotBody["query"])
	_, hasVars := gotBody["variables"]
	assert.False(t, hasVars, "empty variables should be omitted from the request body")
	assert.JSONEq(t, `{"data":{"assets":[{"slug":"solana"}]}}`, string(raw))
}

func TestExecute_AuthError(t *testing.T) {
	for _, code := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "bad key", code)
		})

		_, err := client.Execute(context.Background(), query.Raw("{}"))
		var authErr *AuthError
		require.ErrorAs(t, err, &authErr)
		assert.Equal(t, code, authErr.StatusCode)
	}
}

func TestExecute_RateLimitError(t *testing.T) {
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	})

	_, err := client.Execute(context.Background(), query.Raw("{}"))
	var rlErr *RateLimitError
	require.ErrorAs(t, err, &rlErr)
}

func TestExecute_UpstreamStatusError(t *testing.T) {
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	_, err := client.Execute(context.Background(), query.Raw("{}"))
	var upErr *UpstreamError
	require.ErrorAs(t, err, &upErr)
	assert.Equal(t, http.StatusInternalServerError, upErr.StatusCode)
}

func TestExecute_GraphQLErrorsPayload(t *testing.T) {
	// The endpoint reports query failures as 200 with an errors array
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":null,"errors":[{"message":"Cannot query field \"bogus\""}]}`))
	})

	_, err := client.Execute(context.Background(), query.Raw("{ bogus }"))
	var upErr *UpstreamError
	require.ErrorAs(t, err, &upErr)
	require.Len(t, upErr.Errors, 1)
	assert.Contains(t, upErr.Errors[0].Message, "bogus")
}

func TestExecute_MalformedJSON(t *testing.T) {
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": not json`))
	})

	_, err := client.Execute(context.Background(), query.Raw("{}"))
	var trErr *TransportError
	require.ErrorAs(t, err, &trErr)
}

func TestExecute_ConnectionFailure(t *testing.T) {
	client, server := testClient(t, func(w http.ResponseWriter, r *http.Request) {})
	server.Close()

	_, err := client.Execute(context.Background(), query.Raw("{}"))
	var trErr *TransportError
	require.ErrorAs(t, err, &trErr)
}

// memoryCache is a test double for the cache collaborator.
type memoryCache struct {
	entries map[string][]byte
	puts    int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string][]byte{}}
}

func (m *memoryCache) Get(key string) ([]byte, bool) {
	body, ok := m.entries[key]
	return body, ok
}

func (m *memoryCache) Put(key string, body []byte) {
	m.puts++
	m.entries[key] = body
}

func TestExecute_CacheHitSkipsTransport(t *testing.T) {
	calls := 0
	cache := newMemoryCache()
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`{"data":{"assets":[]}}`))
	}, WithCache(cache))

	spec := query.Raw("{ assets { slug } }")

	first, err := client.Execute(context.Background(), spec)
	require.NoError(t, err)
	second, err := client.Execute(context.Background(), spec)
	require.NoError(t, err)

	assert.Equal(t, 1, calls, "second call must be served from cache")
	assert.Equal(t, 1, cache.puts)
	assert.Equal(t, string(first), string(second))
}

func TestExecuteFresh_BypassesCache(t *testing.T) {
	calls := 0
	cache := newMemoryCache()
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`{"data":{}}`))
	}, WithCache(cache))

	spec := query.Raw("{ assets { slug } }")
	_, err := client.ExecuteFresh(context.Background(), spec)
	require.NoError(t, err)
	_, err = client.ExecuteFresh(context.Background(), spec)
	require.NoError(t, err)

	assert.Equal(t, 2, calls)
	assert.Equal(t, 0, cache.puts, "fresh execution must not populate the cache")
}

func TestExecute_ErrorsAreNotCached(t *testing.T) {
	cache := newMemoryCache()
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}, WithCache(cache))

	_, err := client.Execute(context.Background(), query.Raw("{}"))
	require.Error(t, err)
	assert.Equal(t, 0, cache.puts)
}

func TestBillingStatus_Passthrough(t *testing.T) {
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/billing", r.URL.Path)
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "test-key", r.Header.Get("X-API-KEY"))
		w.Write([]byte(`{"credits":1234,"plan":"research"}`))
	})

	body, err := client.BillingStatus(context.Background())
	require.NoError(t, err)
	assert.JSONEq(t, `{"credits":1234,"plan":"research"}`, string(body))
}

func TestBillingStatus_AuthError(t *testing.T) {
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	})

	_, err := client.BillingStatus(context.Background())
	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
}
