package payments

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPrepareServiceForTest(srvURL string, store Store) *PrepareService {
	cfg := Config{APISecret: "sk_test", ChannelKey: "channel-key-1", APIBase: srvURL}
	client := NewPortOneClient(cfg, discardLogger())
	return NewPrepareService(cfg, client, store, discardLogger())
}

func prepareInput() PrepareInput {
	return PrepareInput{
		BidID:       "bid-1",
		OrderID:     "ord-7",
		ProductName: "몬스테라 알보 중묘",
		Amount:      25000,
		UserID:      "u-1",
		SuccessURL:  "https://plantbid.kr/payments/success",
		FailURL:     "https://plantbid.kr/payments/fail",
	}
}

func TestPrepare_CreatesReadyRecord(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v2/payments", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Write([]byte(`{"paymentId":"pay_providerIssued0000000a","checkoutUrl":"https://checkout.portone.io/x"}`))
	}))
	defer srv.Close()

	store := &fakeStore{}
	svc := newPrepareServiceForTest(srv.URL, store)

	res, err := svc.Prepare(context.Background(), prepareInput())
	require.NoError(t, err)

	assert.Equal(t, "https://checkout.portone.io/x", res.URL)
	assert.Equal(t, "ord-7", res.OrderID)
	assert.Equal(t, int64(25000), res.Amount)
	assert.Equal(t, "channel-key-1", res.ClientKey)
	// provider's own id wins over the locally minted one
	assert.Equal(t, "pay_providerIssued0000000a", res.PaymentID)

	require.NotNil(t, store.payment)
	assert.Equal(t, StatusReady, store.payment.Status)
	assert.Equal(t, "pay_providerIssued0000000a", store.payment.PaymentKey)
	assert.Equal(t, "25000", store.payment.Amount)
	assert.Equal(t, "ord-7", store.payment.OrderID)
	require.NotNil(t, store.payment.BidID)
	assert.Equal(t, "bid-1", *store.payment.BidID)
	assert.True(t, len(store.payment.MerchantUID) > len("ord_"))
	assert.Empty(t, store.payment.Method, "method is unknown until the provider confirms")

	assert.Equal(t, "channel-key-1", gotBody["channelKey"])
	assert.Equal(t, "https://plantbid.kr/payments/success", gotBody["successRedirectUrl"])
}

func TestPrepare_NoCheckoutURLIsHardFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"paymentId":"pay_providerIssued0000000a"}`))
	}))
	defer srv.Close()

	store := &fakeStore{}
	svc := newPrepareServiceForTest(srv.URL, store)

	_, err := svc.Prepare(context.Background(), prepareInput())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoCheckoutURL))
	assert.Nil(t, store.payment, "no record may exist without a checkout url")
}

func TestPrepare_ProviderErrorPropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"type":"INVALID_REQUEST"}`))
	}))
	defer srv.Close()

	store := &fakeStore{}
	svc := newPrepareServiceForTest(srv.URL, store)

	_, err := svc.Prepare(context.Background(), prepareInput())
	require.Error(t, err)
	assert.Nil(t, store.payment)
}

func TestPrepare_InputValidation(t *testing.T) {
	svc := newPrepareServiceForTest("http://unused.invalid", &fakeStore{})

	in := prepareInput()
	in.OrderID = ""
	_, err := svc.Prepare(context.Background(), in)
	require.Error(t, err)

	in = prepareInput()
	in.Amount = 0
	_, err = svc.Prepare(context.Background(), in)
	require.Error(t, err)

	noSecret := NewPrepareService(Config{}, NewPortOneClient(Config{}, discardLogger()), &fakeStore{}, discardLogger())
	_, err = noSecret.Prepare(context.Background(), prepareInput())
	assert.True(t, errors.Is(err, ErrSecretNotConfigured))
}
