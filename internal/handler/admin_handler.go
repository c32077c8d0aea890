// internal/handler/admin_handler.go
package handler

import (
	"net/http"

	"github.com/DrawzeoBarrela/pix-pocket-brasil/internal/middleware"
	"github.com/DrawzeoBarrela/pix-pocket-brasil/internal/usecase"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AdminHandler exposes the manual reconciliation tools to operators.
type AdminHandler struct {
	manualUC *usecase.ManualUsecase
	logger   *zap.Logger
}

func NewAdminHandler(manualUC *usecase.ManualUsecase, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		manualUC: manualUC,
		logger:   logger,
	}
}

func operatorID(r *http.Request) string {
	id, _ := middleware.GetUserID(r.Context())
	return id
}

func (h *AdminHandler) respond(w http.ResponseWriter, r *http.Request, action string, result *usecase.Result, err error) {
	if err != nil {
		h.logger.Error("admin action failed",
			zap.String("action", action),
			zap.String("operator_id", operatorID(r)),
			zap.Error(err))
		render.Status(r, statusFor(err))
		render.JSON(w, r, result)
		return
	}

	h.logger.Info("admin action",
		zap.String("action", action),
		zap.String("operator_id", operatorID(r)),
		zap.String("payment_id", result.PaymentID),
		zap.String("status", result.Status))
	render.JSON(w, r, result)
}

func (h *AdminHandler) Recheck(w http.ResponseWriter, r *http.Request) {
	result, err := h.manualUC.Recheck(r.Context(), chi.URLParam(r, "paymentID"))
	h.respond(w, r, "recheck", result, err)
}

func (h *AdminHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	result, err := h.manualUC.ManualConfirm(r.Context(), chi.URLParam(r, "paymentID"), operatorID(r))
	h.respond(w, r, "confirm", result, err)
}

func (h *AdminHandler) ResendNotification(w http.ResponseWriter, r *http.Request) {
	result, err := h.manualUC.ResendNotification(r.Context(), chi.URLParam(r, "paymentID"))
	h.respond(w, r, "resend_notification", result, err)
}

func (h *AdminHandler) TestNotification(w http.ResponseWriter, r *http.Request) {
	result, err := h.manualUC.TestNotification(r.Context(), operatorID(r))
	h.respond(w, r, "test_notification", result, err)
}

func (h *AdminHandler) CancelOperation(w http.ResponseWriter, r *http.Request) {
	operationID, err := uuid.Parse(chi.URLParam(r, "operationID"))
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, &usecase.Result{Status: usecase.StatusError, Message: "invalid operation id"})
		return
	}

	result, err := h.manualUC.CancelOperation(r.Context(), operationID, operatorID(r))
	h.respond(w, r, "cancel", result, err)
}

func (h *AdminHandler) Debug(w http.ResponseWriter, r *http.Request) {
	report, err := h.manualUC.Debug(r.Context(), chi.URLParam(r, "paymentID"))
	if err != nil {
		render.Status(r, statusFor(err))
		render.JSON(w, r, &usecase.Result{Status: usecase.StatusError, Message: err.Error()})
		return
	}
	render.JSON(w, r, report)
}
