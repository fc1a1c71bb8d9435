package api

import (
	"errors"
	"net/http"

	"github.com/Fi44er/roi_ledger/internal/models"
	"github.com/gin-gonic/gin"
)

var errorStatus = []struct {
	err    error
	status int
	code   string
}{
	{models.ErrInvalidDepositAmount, http.StatusBadRequest, "invalid_deposit_amount"},
	{models.ErrInvalidAmount, http.StatusBadRequest, "invalid_amount"},
	{models.ErrInsufficientFunds, http.StatusUnprocessableEntity, "insufficient_funds"},
	{models.ErrCooldownActive, http.StatusUnprocessableEntity, "cooldown_active"},
	{models.ErrDuplicateHash, http.StatusConflict, "duplicate_hash"},
	{models.ErrAlreadyProcessed, http.StatusConflict, "already_processed"},
	{models.ErrNotPending, http.StatusConflict, "not_pending"},
	{models.ErrUserExists, http.StatusConflict, "user_exists"},
	{models.ErrNotFound, http.StatusNotFound, "not_found"},
	{models.ErrForbidden, http.StatusForbidden, "forbidden"},
	{models.ErrLockHeld, http.StatusServiceUnavailable, "busy"},
	{models.ErrStorageUnavailable, http.StatusServiceUnavailable, "storage_unavailable"},
}

func (s *Server) writeError(c *gin.Context, err error) {
	status, code := http.StatusInternalServerError, "internal"
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			status, code = e.status, e.code
			break
		}
	}

	body := gin.H{"error": err.Error(), "code": code}

	var insufficient *models.InsufficientFundsError
	if errors.As(err, &insufficient) {
		body["available"] = insufficient.Available
		body["requested"] = insufficient.Requested
		body["shortfall"] = insufficient.Shortfall()
	}
	var cooldown *models.CooldownError
	if errors.As(err, &cooldown) {
		body["days_remaining"] = cooldown.DaysRemaining
	}

	if status >= http.StatusInternalServerError {
		s.logger.Errorf("request %s %s failed: %v", c.Request.Method, c.FullPath(), err)
	}
	c.JSON(status, body)
}
