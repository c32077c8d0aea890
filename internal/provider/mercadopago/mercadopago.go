// internal/provider/mercadopago/mercadopago.go
package mercadopago

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/DrawzeoBarrela/pix-pocket-brasil/config"
	"github.com/DrawzeoBarrela/pix-pocket-brasil/internal/domain"
	"github.com/DrawzeoBarrela/pix-pocket-brasil/internal/provider"
	"github.com/DrawzeoBarrela/pix-pocket-brasil/pkg/id"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	providerName      = "mercadopago"
	defaultPayerEmail = "user@example.com"
	maxErrorBody      = 512
)

var _ provider.PaymentProvider = (*MercadoPagoProvider)(nil)

type MercadoPagoProvider struct {
	config     config.MercadoPagoConfig
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewMercadoPagoProvider(cfg config.MercadoPagoConfig, logger *zap.Logger) *MercadoPagoProvider {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &MercadoPagoProvider{
		config:     cfg,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

func (m *MercadoPagoProvider) GetName() string {
	return providerName
}

// paymentResource is the subset of /v1/payments/{id} we read.
type paymentResource struct {
	ID                 resourceID  `json:"id"`
	Status             string      `json:"status"`
	StatusDetail       string      `json:"status_detail"`
	TransactionAmount  json.Number `json:"transaction_amount"`
	ExternalReference  string      `json:"external_reference"`
	DateApproved       *time.Time  `json:"date_approved"`
	PointOfInteraction struct {
		TransactionData struct {
			QRCode       string `json:"qr_code"`
			QRCodeBase64 string `json:"qr_code_base64"`
		} `json:"transaction_data"`
	} `json:"point_of_interaction"`
}

// resourceID accepts the payment id as a JSON string or number. Anything else
// decodes to "" instead of failing the whole payment.
type resourceID string

func (r *resourceID) UnmarshalJSON(b []byte) error {
	var raw any
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		*r = ""
		return nil
	}
	s, _ := stringify(raw)
	*r = resourceID(s)
	return nil
}

func (p *paymentResource) amount() decimal.Decimal {
	if p.TransactionAmount == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(p.TransactionAmount.String())
	if err != nil {
		return decimal.Zero
	}
	return d
}

// FetchAuthoritativeStatus queries GET /v1/payments/{id}.
func (m *MercadoPagoProvider) FetchAuthoritativeStatus(ctx context.Context, paymentID string) (*provider.PaymentStatusResult, error) {
	endpoint := fmt.Sprintf("%s/v1/payments/%s", m.baseURL, url.PathEscape(paymentID))

	statusCode, body, err := m.makeRequest(ctx, http.MethodGet, endpoint, nil, nil)
	if err != nil {
		m.logger.Warn("mercado pago lookup failed",
			zap.String("payment_id", paymentID),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}

	if statusCode == http.StatusNotFound {
		m.logger.Info("payment not found at mercado pago",
			zap.String("payment_id", paymentID))
		return &provider.PaymentStatusResult{
			PaymentID: paymentID,
			Status:    domain.PaymentStatusNotFound,
		}, nil
	}

	if statusCode < 200 || statusCode > 299 {
		m.logger.Warn("mercado pago returned non-success status",
			zap.String("payment_id", paymentID),
			zap.Int("status_code", statusCode),
			zap.String("response", truncate(body)))
		return nil, fmt.Errorf("%w: lookup returned status %d", domain.ErrProviderUnavailable, statusCode)
	}

	var payment paymentResource
	if err := json.Unmarshal(body, &payment); err != nil {
		return nil, fmt.Errorf("%w: failed to parse payment: %v", domain.ErrProviderUnavailable, err)
	}

	result := &provider.PaymentStatusResult{
		PaymentID:         paymentID,
		Status:            MapStatus(payment.Status),
		ProviderStatus:    payment.Status,
		StatusDetail:      payment.StatusDetail,
		Amount:            payment.amount(),
		ExternalReference: payment.ExternalReference,
		DateApproved:      payment.DateApproved,
	}

	m.logger.Info("mercado pago payment fetched",
		zap.String("payment_id", paymentID),
		zap.String("resource_id", string(payment.ID)),
		zap.String("provider_status", payment.Status),
		zap.String("status", string(result.Status)))

	return result, nil
}

// MapStatus folds the provider's payment states into the four states the pipeline branches on.
func MapStatus(status string) domain.PaymentStatus {
	switch strings.ToLower(status) {
	case "approved":
		return domain.PaymentStatusApproved
	case "rejected", "cancelled", "refunded", "charged_back":
		return domain.PaymentStatusRejected
	default:
		return domain.PaymentStatusPending
	}
}

type pixPaymentPayload struct {
	TransactionAmount json.Number `json:"transaction_amount"`
	Description       string      `json:"description"`
	PaymentMethodID   string      `json:"payment_method_id"`
	ExternalReference string      `json:"external_reference"`
	NotificationURL   string      `json:"notification_url,omitempty"`
	Payer             struct {
		Email string `json:"email"`
	} `json:"payer"`
}

// CreatePixPayment creates a PIX charge via POST /v1/payments.
func (m *MercadoPagoProvider) CreatePixPayment(ctx context.Context, req *provider.PixPaymentRequest) (*provider.PixPaymentResponse, error) {
	payload := pixPaymentPayload{
		TransactionAmount: json.Number(req.Amount.StringFixed(2)),
		Description:       req.Description,
		PaymentMethodID:   "pix",
		ExternalReference: req.OperationID,
		NotificationURL:   m.config.NotificationURL,
	}
	if payload.Description == "" {
		payload.Description = fmt.Sprintf("Depósito - Operação %s", req.OperationID)
	}
	payload.Payer.Email = req.PayerEmail
	if payload.Payer.Email == "" {
		payload.Payer.Email = defaultPayerEmail
	}

	headers := map[string]string{
		"X-Idempotency-Key": id.IdempotencyKey(req.OperationID),
	}

	endpoint := m.baseURL + "/v1/payments"
	statusCode, body, err := m.makeRequest(ctx, http.MethodPost, endpoint, payload, headers)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}
	if statusCode < 200 || statusCode > 299 {
		m.logger.Error("failed to create pix payment",
			zap.String("operation_id", req.OperationID),
			zap.Int("status_code", statusCode),
			zap.String("response", truncate(body)))
		return nil, fmt.Errorf("mercado pago returned status %d: %s", statusCode, truncate(body))
	}

	var payment paymentResource
	if err := json.Unmarshal(body, &payment); err != nil {
		return nil, fmt.Errorf("failed to parse payment: %w", err)
	}

	if payment.ID == "" {
		return nil, fmt.Errorf("payment id missing from create response")
	}

	pix := payment.PointOfInteraction.TransactionData
	if pix.QRCode == "" && pix.QRCodeBase64 == "" {
		return nil, fmt.Errorf("pix transaction data missing from payment %s", payment.ID)
	}

	m.logger.Info("pix payment created",
		zap.String("operation_id", req.OperationID),
		zap.String("payment_id", string(payment.ID)),
		zap.String("status", payment.Status))

	return &provider.PixPaymentResponse{
		PaymentID:    string(payment.ID),
		Status:       payment.Status,
		Amount:       payment.amount(),
		QRCodeBase64: pix.QRCodeBase64,
		QRCodeText:   pix.QRCode,
	}, nil
}

// Probe runs the lookups operators use to investigate a payment that never reconciled.
func (m *MercadoPagoProvider) Probe(ctx context.Context, paymentID string) (*provider.ProbeReport, error) {
	endpoints := []string{
		fmt.Sprintf("%s/v1/payments/%s", m.baseURL, url.PathEscape(paymentID)),
		fmt.Sprintf("%s/v1/payments/search?external_reference=%s", m.baseURL, url.QueryEscape(paymentID)),
		fmt.Sprintf("%s/v1/payments/search?sort=date_created&criteria=desc&limit=10", m.baseURL),
	}

	report := &provider.ProbeReport{PaymentID: paymentID}
	for _, endpoint := range endpoints {
		result := provider.ProbeResult{Endpoint: strings.TrimPrefix(endpoint, m.baseURL)}

		statusCode, body, err := m.makeRequest(ctx, http.MethodGet, endpoint, nil, nil)
		if err != nil {
			result.Error = err.Error()
			report.Probes = append(report.Probes, result)
			continue
		}

		result.StatusCode = statusCode
		var decoded any
		if err := json.Unmarshal(body, &decoded); err != nil {
			result.Body = truncate(body)
		} else {
			result.Body = decoded
		}
		report.Probes = append(report.Probes, result)
	}

	return report, nil
}

// makeRequest sends an authenticated request and returns the raw status and body.
func (m *MercadoPagoProvider) makeRequest(ctx context.Context, method, endpoint string, payload any, headers map[string]string) (int, []byte, error) {
	var body io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, err
		}
		body = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return 0, nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.config.AccessToken)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}

	return resp.StatusCode, responseBody, nil
}

func truncate(b []byte) string {
	if len(b) > maxErrorBody {
		return string(b[:maxErrorBody]) + "..."
	}
	return string(b)
}
