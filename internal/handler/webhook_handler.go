// internal/handler/webhook_handler.go
package handler

import (
	"io"
	"net/http"

	"github.com/DrawzeoBarrela/pix-pocket-brasil/internal/usecase"
	"github.com/DrawzeoBarrela/pix-pocket-brasil/pkg/response"

	"go.uber.org/zap"
)

const maxWebhookBody = 1 << 20

type WebhookHandler struct {
	callbackUC *usecase.CallbackUsecase
	logger     *zap.Logger
}

func NewWebhookHandler(callbackUC *usecase.CallbackUsecase, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		callbackUC: callbackUC,
		logger:     logger,
	}
}

// HandleMercadoPagoWebhook accepts both the query-string and the JSON body
// delivery shapes. Only retryable failures answer with a 5xx.
func (h *WebhookHandler) HandleMercadoPagoWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		h.logger.Warn("failed to read webhook body", zap.Error(err))
		response.Error(w, http.StatusBadRequest, "failed to read request body", err)
		return
	}

	h.logger.Debug("mercado pago webhook",
		zap.String("method", r.Method),
		zap.String("query", r.URL.RawQuery),
		zap.Int("body_size", len(body)),
		zap.String("request_id", r.Header.Get("X-Request-Id")))

	result, err := h.callbackUC.ProcessMercadoPagoWebhook(r.Context(), &usecase.WebhookDelivery{
		Query:     r.URL.Query(),
		Body:      body,
		Signature: r.Header.Get("X-Signature"),
	})
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error("webhook processing failed", zap.Int("status", status), zap.Error(err))
		}
		response.Error(w, status, usecase.StatusError, err)
		return
	}

	response.JSON(w, http.StatusOK, result.Status, result)
}
