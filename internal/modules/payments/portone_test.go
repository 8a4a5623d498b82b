package payments

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newPortOneClientForTest(baseURL string) *PortOneClient {
	cfg := Config{
		APISecret: "sk_test",
		StoreID:   "store-abc",
		APIBase:   baseURL,
	}
	return NewPortOneClient(cfg, discardLogger())
}

var idempotencyKeyPattern = regexp.MustCompile(`^cancel-\d+-[0-9a-z]{8}$`)

func TestNewIdempotencyKey(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		k := newIdempotencyKey()
		require.Regexp(t, idempotencyKeyPattern, k)
		seen[k] = true
	}
	// millisecond timestamp plus 8 random chars: collisions in a tight loop
	// would indicate a broken random source
	assert.Greater(t, len(seen), 45)
}

func TestCancelPayment_FreshIdempotencyKeyPerCall(t *testing.T) {
	var keys []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		keys = append(keys, r.Header.Get("Idempotency-Key"))
		assert.Equal(t, "PortOne sk_test", r.Header.Get("Authorization"))
		assert.Equal(t, "store-abc", r.Header.Get("Store-Id"))
		w.Write([]byte(`{"cancelledId":"pay_abcdefghijklmnopqrstuv","status":"CANCELLED"}`))
	}))
	defer srv.Close()

	c := newPortOneClientForTest(srv.URL)
	for i := 0; i < 3; i++ {
		_, err := c.CancelPayment(context.Background(), CancelParams{
			PaymentID: "pay_abcdefghijklmnopqrstuv",
			Reason:    "test",
		})
		require.NoError(t, err)
	}

	require.Len(t, keys, 3)
	unique := map[string]bool{}
	for _, k := range keys {
		require.Regexp(t, idempotencyKeyPattern, k)
		unique[k] = true
	}
	assert.Len(t, unique, 3, "every cancel call must carry a fresh idempotency key")
}

func TestCancelPayment_LegacyUUIDSentVerbatim(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`{"cancelledId":"x","status":"CANCELLED"}`))
	}))
	defer srv.Close()

	c := newPortOneClientForTest(srv.URL)
	_, err := c.CancelPayment(context.Background(), CancelParams{
		PaymentID: "550e8400-e29b-41d4-a716-446655440000",
		Reason:    "test",
	})
	require.NoError(t, err)
	assert.Equal(t, "/v2/payments/550e8400-e29b-41d4-a716-446655440000/cancel", gotPath)
}

func TestCancelPayment_NormalizesLooseID(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`{"cancelledId":"x","status":"CANCELLED"}`))
	}))
	defer srv.Close()

	c := newPortOneClientForTest(srv.URL)
	_, err := c.CancelPayment(context.Background(), CancelParams{PaymentID: "ord-42", Reason: "test"})
	require.NoError(t, err)
	assert.Equal(t, "/v2/payments/"+ConvertToV2PaymentID("ord-42")+"/cancel", gotPath)
}

func TestGetPayment_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"type":"PAYMENT_NOT_FOUND"}`))
	}))
	defer srv.Close()

	c := newPortOneClientForTest(srv.URL)
	_, err := c.GetPayment(context.Background(), "pay_abcdefghijklmnopqrstuv")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPaymentNotFound))
}

func TestGetPayment_OtherErrorNotMappedToNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newPortOneClientForTest(srv.URL)
	_, err := c.GetPayment(context.Background(), "pay_abcdefghijklmnopqrstuv")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrPaymentNotFound))

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 500, apiErr.Status)
}

func TestSearchPayments_QueryEncoding(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/payments", r.URL.Path)
		assert.Equal(t, "ord-7", r.URL.Query().Get("orderId"))
		assert.Equal(t, "1", r.URL.Query().Get("size"))
		json.NewEncoder(w).Encode(SearchResult{Items: []ProviderPayment{{ID: "pay_abcdefghijklmnopqrstuv", Status: "PAID"}}})
	}))
	defer srv.Close()

	c := newPortOneClientForTest(srv.URL)
	res, err := c.SearchPayments(context.Background(), SearchParams{OrderID: "ord-7", Size: 1})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "pay_abcdefghijklmnopqrstuv", res.Items[0].ID)
}

func TestSmartCancel_AlreadyCancelledAtProvider(t *testing.T) {
	var cancelCalls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet && r.URL.Path == "/v2/payments/pay_abcdefghijklmnopqrstuv" {
			w.Write([]byte(`{"id":"pay_abcdefghijklmnopqrstuv","status":"CANCELLED"}`))
			return
		}
		cancelCalls++
		w.Write([]byte(`{"cancelledId":"x","status":"CANCELLED"}`))
	}))
	defer srv.Close()

	c := newPortOneClientForTest(srv.URL)
	res, err := c.SmartCancel(context.Background(), "pay_abcdefghijklmnopqrstuv", "ord-7", "reason")
	require.NoError(t, err)
	assert.Equal(t, "CANCELLED", res.Status)
	assert.Zero(t, cancelCalls, "already cancelled payment must not be cancelled again")
}

func TestTestConnection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"items":[]}`))
	}))
	defer srv.Close()

	c := newPortOneClientForTest(srv.URL)
	ok, msg := c.TestConnection(context.Background())
	assert.True(t, ok)
	assert.NotEmpty(t, msg)

	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer bad.Close()

	c = newPortOneClientForTest(bad.URL)
	ok, msg = c.TestConnection(context.Background())
	assert.False(t, ok)
	assert.Contains(t, msg, "secret")

	noSecret := NewPortOneClient(Config{APIBase: srv.URL}, discardLogger())
	ok, _ = noSecret.TestConnection(context.Background())
	assert.False(t, ok)
}
