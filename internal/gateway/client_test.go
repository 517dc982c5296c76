package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(baseURL string) Config {
	return Config{
		BaseURL:           baseURL,
		KeyID:             "rzp_key",
		KeySecret:         "rzp_secret",
		AccountNumber:     "2323230000000000",
		Currency:          "INR",
		Purpose:           "payout",
		Narration:         "Monthly Payout",
		QueueIfLowBalance: true,
		Timeout:           2 * time.Second,
	}
}

func testRequest() TransferRequest {
	return TransferRequest{
		FundAccountID:   "fa_001",
		FundAccountType: "vpa",
		Amount:          decimal.RequireFromString("1200.50"),
		ReferenceID:     "ref_creator1_0a1b2c3d",
		IdempotencyKey:  "6f1c2d8e-5b7a-4c1e-9f0a-1b2c3d4e5f60",
	}
}

func TestCreatePayoutRequestShape(t *testing.T) {
	var got payoutPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/payouts", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "rzp_key", user)
		assert.Equal(t, "rzp_secret", pass)
		assert.Equal(t, "6f1c2d8e-5b7a-4c1e-9f0a-1b2c3d4e5f60", r.Header.Get("X-Payout-Idempotency"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		_, _ = io.WriteString(w, `{"id":"pout_1","reference_id":"ref_creator1_0a1b2c3d","status":"processed"}`)
	}))
	defer srv.Close()

	out, err := NewClient(testConfig(srv.URL), nil).CreatePayout(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, "pout_1", out.GatewayPayoutID)
	assert.Equal(t, "processed", out.Status)

	assert.Equal(t, int64(120050), got.Amount)
	assert.Equal(t, "UPI", got.Mode)
	assert.Equal(t, "INR", got.Currency)
	assert.Equal(t, "payout", got.Purpose)
	assert.Equal(t, "Monthly Payout", got.Narration)
	assert.True(t, got.QueueIfLowBalance)
	assert.Equal(t, "2323230000000000", got.AccountNumber)
	assert.Equal(t, "fa_001", got.FundAccountID)
}

func TestCreatePayoutClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		kind   Kind
	}{
		{"结构化 400 为拒绝", http.StatusBadRequest, `{"error":{"code":"BAD_REQUEST_ERROR","description":"Invalid fund account"}}`, KindRejected},
		{"422 为拒绝", http.StatusUnprocessableEntity, `{"error":{"code":"BAD_REQUEST_ERROR","description":"amount too low"}}`, KindRejected},
		{"500 为暂时性", http.StatusInternalServerError, `{"error":{"code":"SERVER_ERROR","description":"oops"}}`, KindTransient},
		{"503 为暂时性", http.StatusServiceUnavailable, ``, KindTransient},
		{"429 为暂时性", http.StatusTooManyRequests, `{"error":{"code":"RATE_LIMIT","description":"slow down"}}`, KindTransient},
		{"非结构化 400 为暂时性", http.StatusBadRequest, `<html>bad gateway</html>`, KindTransient},
		{"200 缺字段为暂时性", http.StatusOK, `{"status":"processed"}`, KindTransient},
		{"200 非 JSON 为暂时性", http.StatusOK, `not json`, KindTransient},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			out, err := NewClient(testConfig(srv.URL), nil).CreatePayout(context.Background(), testRequest())
			require.Error(t, err)
			assert.Nil(t, out)

			var gerr *Error
			require.ErrorAs(t, err, &gerr)
			assert.Equal(t, tt.kind, gerr.Kind)
			assert.Equal(t, tt.status, gerr.StatusCode)
			assert.Equal(t, tt.kind == KindRejected, IsRejected(err))
		})
	}
}

func TestCreatePayoutTimeoutIsTransient(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	cfg := testConfig(srv.URL)
	cfg.Timeout = 50 * time.Millisecond
	_, err := NewClient(cfg, nil).CreatePayout(context.Background(), testRequest())
	require.Error(t, err)
	assertTransient(t, err)
}

func TestCreatePayoutConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewClient(testConfig(url), nil).CreatePayout(context.Background(), testRequest())
	require.Error(t, err)
	assertTransient(t, err)
}

func TestFindByReference(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "2323230000000000", r.URL.Query().Get("account_number"))
		if r.URL.Query().Get("reference_id") == "ref_known" {
			_, _ = io.WriteString(w, `{"entity":"collection","count":1,"items":[{"id":"pout_9","reference_id":"ref_known","status":"reversed","status_details":{"description":"beneficiary bank down"}}]}`)
			return
		}
		_, _ = io.WriteString(w, `{"entity":"collection","count":0,"items":[]}`)
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL), nil)
	out, err := c.FindByReference(context.Background(), "ref_known")
	require.NoError(t, err)
	assert.Equal(t, "pout_9", out.GatewayPayoutID)
	assert.Equal(t, "reversed", out.Status)
	assert.Equal(t, "beneficiary bank down", out.FailureReason)

	_, err = c.FindByReference(context.Background(), "ref_unknown")
	assert.ErrorIs(t, err, ErrNotFound)
}

// 模拟网关按幂等键去重: 同一个 key 无论调用多少次只产生一笔转账
func TestCreatePayoutIdempotentRetry(t *testing.T) {
	var (
		mu        sync.Mutex
		transfers = map[string]string{}
		calls     int
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		key := r.Header.Get("X-Payout-Idempotency")
		id, ok := transfers[key]
		if !ok {
			id = "pout_" + key[:8]
			transfers[key] = id
		}
		_, _ = io.WriteString(w, `{"id":"`+id+`","reference_id":"ref_creator1_0a1b2c3d","status":"processed"}`)
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL), nil)
	first, err := c.CreatePayout(context.Background(), testRequest())
	require.NoError(t, err)
	second, err := c.CreatePayout(context.Background(), testRequest())
	require.NoError(t, err)

	assert.Equal(t, 2, calls)
	assert.Len(t, transfers, 1)
	assert.Equal(t, first.GatewayPayoutID, second.GatewayPayoutID)
}

func TestModeAndMinorUnits(t *testing.T) {
	assert.Equal(t, ModeUPI, ModeFor("vpa"))
	assert.Equal(t, ModeIMPS, ModeFor("bank_account"))
	assert.Equal(t, ModeIMPS, ModeFor(""))

	assert.Equal(t, int64(50000), ToMinorUnits(decimal.RequireFromString("500")))
	assert.Equal(t, int64(120099), ToMinorUnits(decimal.RequireFromString("1200.999")))
}

func assertTransient(t *testing.T, err error) {
	t.Helper()
	var gerr *Error
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, KindTransient, gerr.Kind)
	assert.False(t, IsRejected(err))
}
