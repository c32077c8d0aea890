// internal/handler/operation_handler.go
package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/DrawzeoBarrela/pix-pocket-brasil/internal/domain"
	"github.com/DrawzeoBarrela/pix-pocket-brasil/internal/middleware"
	"github.com/DrawzeoBarrela/pix-pocket-brasil/internal/usecase"
	"github.com/DrawzeoBarrela/pix-pocket-brasil/pkg/response"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type OperationHandler struct {
	operationUC *usecase.OperationUsecase
	logger      *zap.Logger
}

func NewOperationHandler(operationUC *usecase.OperationUsecase, logger *zap.Logger) *OperationHandler {
	return &OperationHandler{
		operationUC: operationUC,
		logger:      logger,
	}
}

func (h *OperationHandler) userID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw, _ := middleware.GetUserID(r.Context())
	userID, err := uuid.Parse(raw)
	if err != nil {
		response.Error(w, http.StatusUnauthorized, "token does not carry a valid user id", nil)
		return uuid.Nil, false
	}
	return userID, true
}

// CreateDeposit handles POST /api/v1/operations/deposits
func (h *OperationHandler) CreateDeposit(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var req domain.DepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	req.UserID = userID

	result, err := h.operationUC.CreateDeposit(r.Context(), &req)
	if err != nil {
		h.logger.Error("failed to create deposit",
			zap.String("user_id", userID.String()),
			zap.Error(err))
		response.Error(w, statusFor(err), "failed to create deposit", err)
		return
	}

	response.JSON(w, http.StatusCreated, "deposit created", result)
}

// CreateWithdrawal handles POST /api/v1/operations/withdrawals
func (h *OperationHandler) CreateWithdrawal(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var req domain.WithdrawalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	req.UserID = userID

	op, err := h.operationUC.CreateWithdrawal(r.Context(), &req)
	if err != nil {
		h.logger.Error("failed to create withdrawal",
			zap.String("user_id", userID.String()),
			zap.Error(err))
		response.Error(w, statusFor(err), "failed to create withdrawal", err)
		return
	}

	response.JSON(w, http.StatusCreated, "withdrawal requested", op)
}

// ListOperations handles GET /api/v1/operations
func (h *OperationHandler) ListOperations(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	ops, err := h.operationUC.ListOperations(r.Context(), userID, limit)
	if err != nil {
		response.Error(w, statusFor(err), "failed to list operations", err)
		return
	}
	if ops == nil {
		ops = []*domain.Operation{}
	}

	response.JSON(w, http.StatusOK, "", ops)
}
