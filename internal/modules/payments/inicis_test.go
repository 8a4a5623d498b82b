package payments

import (
	"context"
	"crypto/sha512"
	"encoding/hex"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var hexPattern = regexp.MustCompile(`^[0-9a-f]+$`)

func TestRefundHash(t *testing.T) {
	hash := RefundHash("apikey123", "20250101120000", "127.0.0.1", "INIpayTest", "INIpayTest_MOI12340000000_20250101120000")

	require.Len(t, hash, 128)
	assert.True(t, hexPattern.MatchString(hash), "hash must be lowercase hex: %s", hash)

	// deterministic
	again := RefundHash("apikey123", "20250101120000", "127.0.0.1", "INIpayTest", "INIpayTest_MOI12340000000_20250101120000")
	assert.Equal(t, hash, again)

	// field order is part of the wire contract: apiKey, "Refund", "Card",
	// timestamp, clientIp, mid, tid, no delimiters
	sum := sha512.Sum512([]byte("apikey123" + "Refund" + "Card" + "20250101120000" + "127.0.0.1" + "INIpayTest" + "INIpayTest_MOI12340000000_20250101120000"))
	assert.Equal(t, hex.EncodeToString(sum[:]), hash)

	// any field change changes the hash
	other := RefundHash("apikey123", "20250101120001", "127.0.0.1", "INIpayTest", "INIpayTest_MOI12340000000_20250101120000")
	assert.NotEqual(t, hash, other)
}

func newInicisClientForTest(host string) *InicisClient {
	cfg := Config{
		InicisAPIKey: "apikey123",
		InicisMID:    "INIpayTest",
		InicisHost:   host,
	}
	c := NewInicisClient(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	c.nowFn = func() time.Time {
		return time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	}
	return c
}

func TestInicisCancelByTID_WireFormat(t *testing.T) {
	var gotForm map[string]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/v1/refund", r.URL.Path)
		require.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		require.NoError(t, r.ParseForm())

		gotForm = map[string]string{}
		for k := range r.PostForm {
			gotForm[k] = r.PostForm.Get(k)
		}
		w.Write([]byte(`{"resultCode":"00","resultMsg":"정상처리"}`))
	}))
	defer srv.Close()

	c := newInicisClientForTest(srv.URL)
	res, err := c.CancelByTID(context.Background(), "MOI1234567", "", "")
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Equal(t, "00", res.ResultCode)

	wantTID := "INIpayTest_MOI12345670000_20250101120000"
	require.Len(t, wantTID, 40)

	assert.Equal(t, "Refund", gotForm["type"])
	assert.Equal(t, "Card", gotForm["paymethod"])
	assert.Equal(t, "20250101120000", gotForm["timestamp"])
	assert.Equal(t, "127.0.0.1", gotForm["clientIp"])
	assert.Equal(t, "INIpayTest", gotForm["mid"])
	assert.Equal(t, wantTID, gotForm["tid"])
	assert.Equal(t, "고객 요청에 의한 취소", gotForm["msg"])
	assert.Equal(t, "1000", gotForm["price"])
	assert.Equal(t, "WON", gotForm["currency"])
	assert.Equal(t, RefundHash("apikey123", "20250101120000", "127.0.0.1", "INIpayTest", wantTID), gotForm["hashData"])
}

func TestInicisCancelByTID_AlreadyCancelledIsSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("이미 취소된 거래입니다"))
	}))
	defer srv.Close()

	c := newInicisClientForTest(srv.URL)
	res, err := c.CancelByTID(context.Background(), "MOI1234567", "reason", "5000")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "01", res.ResultCode)
}

func TestInicisCancelByTID_RejectedResultCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"resultCode":"42","resultMsg":"잔액이 부족합니다"}`))
	}))
	defer srv.Close()

	c := newInicisClientForTest(srv.URL)
	_, err := c.CancelByTID(context.Background(), "MOI1234567", "", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "42")
}

func TestInicisCancelByTID_NoMOI(t *testing.T) {
	c := newInicisClientForTest("http://unused.invalid")
	_, err := c.CancelByTID(context.Background(), "pay_abcdefghijklmnopqrstuv", "", "")
	require.Error(t, err)
}

func TestInicisCancelByTID_MissingAPIKey(t *testing.T) {
	c := NewInicisClient(Config{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	_, err := c.CancelByTID(context.Background(), "MOI1234567", "", "")
	require.Error(t, err)
}
