package mercadopago

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DrawzeoBarrela/pix-pocket-brasil/config"
	"github.com/DrawzeoBarrela/pix-pocket-brasil/internal/domain"
	"github.com/DrawzeoBarrela/pix-pocket-brasil/internal/provider"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) *MercadoPagoProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewMercadoPagoProvider(config.MercadoPagoConfig{
		BaseURL:         srv.URL,
		AccessToken:     "APP_USR-token",
		NotificationURL: "https://example.test/api/v1/webhooks/mercadopago",
		Timeout:         time.Second,
	}, zap.NewNop())
}

func TestFetchAuthoritativeStatus(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		body       string
		want       domain.PaymentStatus
	}{
		{name: "approved", statusCode: 200, body: `{"id": 987, "status": "approved", "transaction_amount": 50}`, want: domain.PaymentStatusApproved},
		{name: "pending", statusCode: 200, body: `{"id": 987, "status": "pending"}`, want: domain.PaymentStatusPending},
		{name: "in process", statusCode: 200, body: `{"id": 987, "status": "in_process"}`, want: domain.PaymentStatusPending},
		{name: "rejected", statusCode: 200, body: `{"id": 987, "status": "rejected"}`, want: domain.PaymentStatusRejected},
		{name: "refunded", statusCode: 200, body: `{"id": 987, "status": "refunded"}`, want: domain.PaymentStatusRejected},
		{name: "not found", statusCode: 404, body: `{"message": "Payment not found"}`, want: domain.PaymentStatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodGet, r.Method)
				assert.Equal(t, "/v1/payments/987", r.URL.Path)
				assert.Equal(t, "Bearer APP_USR-token", r.Header.Get("Authorization"))
				w.WriteHeader(tt.statusCode)
				_, _ = w.Write([]byte(tt.body))
			})

			result, err := p.FetchAuthoritativeStatus(context.Background(), "987")
			require.NoError(t, err)
			assert.Equal(t, tt.want, result.Status)
			assert.Equal(t, "987", result.PaymentID)
		})
	}
}

func TestFetchAuthoritativeStatusAmount(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id": 987, "status": "approved", "transaction_amount": 50.1, "external_reference": "op-1"}`))
	})

	result, err := p.FetchAuthoritativeStatus(context.Background(), "987")
	require.NoError(t, err)
	assert.True(t, result.IsApproved())
	assert.True(t, result.Amount.Equal(decimal.RequireFromString("50.10")))
	assert.Equal(t, "op-1", result.ExternalReference)
}

func TestFetchAuthoritativeStatusOpaqueID(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "string id", body: `{"id": "PAY1", "status": "approved"}`},
		{name: "object id", body: `{"id": {"value": 1}, "status": "approved"}`},
		{name: "null id", body: `{"id": null, "status": "approved"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/v1/payments/PAY1", r.URL.Path)
				_, _ = w.Write([]byte(tt.body))
			})

			result, err := p.FetchAuthoritativeStatus(context.Background(), "PAY1")
			require.NoError(t, err)
			assert.True(t, result.IsApproved())
			assert.Equal(t, "PAY1", result.PaymentID)
		})
	}
}

func TestFetchAuthoritativeStatusUnavailable(t *testing.T) {
	t.Run("server error", func(t *testing.T) {
		p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		})
		_, err := p.FetchAuthoritativeStatus(context.Background(), "987")
		assert.ErrorIs(t, err, domain.ErrProviderUnavailable)
	})

	t.Run("unauthorized", func(t *testing.T) {
		p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		})
		_, err := p.FetchAuthoritativeStatus(context.Background(), "987")
		assert.ErrorIs(t, err, domain.ErrProviderUnavailable)
	})

	t.Run("timeout", func(t *testing.T) {
		p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
		})
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		_, err := p.FetchAuthoritativeStatus(ctx, "987")
		assert.ErrorIs(t, err, domain.ErrProviderUnavailable)
	})

	t.Run("garbage body", func(t *testing.T) {
		p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`<html>`))
		})
		_, err := p.FetchAuthoritativeStatus(context.Background(), "987")
		assert.ErrorIs(t, err, domain.ErrProviderUnavailable)
	})
}

func TestCreatePixPayment(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/payments", r.URL.Path)
		assert.True(t, strings.HasPrefix(r.Header.Get("X-Idempotency-Key"), "op-1-"))

		var payload map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "pix", payload["payment_method_id"])
		assert.Equal(t, 50.0, payload["transaction_amount"])
		assert.Equal(t, "op-1", payload["external_reference"])
		assert.Equal(t, "https://example.test/api/v1/webhooks/mercadopago", payload["notification_url"])

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{
			"id": 1234567,
			"status": "pending",
			"transaction_amount": 50,
			"point_of_interaction": {"transaction_data": {"qr_code": "000201...", "qr_code_base64": "iVBOR"}}
		}`))
	})

	resp, err := p.CreatePixPayment(context.Background(), &provider.PixPaymentRequest{
		OperationID: "op-1",
		Amount:      decimal.RequireFromString("50.00"),
	})
	require.NoError(t, err)
	assert.Equal(t, "1234567", resp.PaymentID)
	assert.Equal(t, "iVBOR", resp.QRCodeBase64)
	assert.Equal(t, "000201...", resp.QRCodeText)
}

func TestCreatePixPaymentRejected(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message": "invalid amount"}`))
	})

	_, err := p.CreatePixPayment(context.Background(), &provider.PixPaymentRequest{OperationID: "op-1", Amount: decimal.NewFromInt(1)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid amount")
}

func TestProbe(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/payments/987" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message": "not found"}`))
			return
		}
		_, _ = w.Write([]byte(`{"results": []}`))
	})

	report, err := p.Probe(context.Background(), "987")
	require.NoError(t, err)
	require.Len(t, report.Probes, 3)
	assert.Equal(t, "/v1/payments/987", report.Probes[0].Endpoint)
	assert.Equal(t, http.StatusNotFound, report.Probes[0].StatusCode)
	assert.Equal(t, http.StatusOK, report.Probes[1].StatusCode)
}

func TestMapStatus(t *testing.T) {
	assert.Equal(t, domain.PaymentStatusApproved, MapStatus("APPROVED"))
	assert.Equal(t, domain.PaymentStatusPending, MapStatus("authorized"))
	assert.Equal(t, domain.PaymentStatusRejected, MapStatus("charged_back"))
}
