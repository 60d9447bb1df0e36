package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/tair/verse-payments/internal/payment/domain"
	"github.com/tair/verse-payments/pkg/logger"
)

// Response is the error and status envelope
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

var errorStatus = []struct {
	err    error
	status int
}{
	{domain.ErrInvalidAmount, http.StatusBadRequest},
	{domain.ErrMissingPurpose, http.StatusBadRequest},
	{domain.ErrMissingPaymentID, http.StatusBadRequest},
	{domain.ErrInvalidRefundAmount, http.StatusBadRequest},
	{domain.ErrInvalidStatus, http.StatusBadRequest},
	{domain.ErrInvalidSignature, http.StatusBadRequest},
	{domain.ErrNotFound, http.StatusNotFound},
	{domain.ErrAlreadyRefunded, http.StatusConflict},
	{domain.ErrNotRefundable, http.StatusConflict},
	{domain.ErrOrderAttached, http.StatusConflict},
	{domain.ErrNotReconcilable, http.StatusConflict},
	{domain.ErrGateway, http.StatusBadGateway},
}

// respondDomainError maps err to a status code. Only the sentinel message is
// returned; wrapped details such as provider responses stay in the logs.
func respondDomainError(ctx context.Context, w http.ResponseWriter, err error, msg string) {
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			if e.status >= 500 {
				logger.Error(ctx).Err(err).Msg(msg)
			}
			respondError(w, e.status, e.err.Error())
			return
		}
	}

	logger.Error(ctx).Err(err).Msg(msg)
	respondError(w, http.StatusInternalServerError, "Internal server error")
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, Response{Success: false, Error: message})
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
