package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Fi44er/roi_ledger/utils"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type registerRequest struct {
	Username string `json:"username" binding:"required"`
}

type depositRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Hash   *string         `json:"hash"`
}

type withdrawalRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

func (s *Server) registerUser(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := s.svc.RegisterUser(c.Request.Context(), req.Username, nil, false)
	if err != nil {
		s.writeError(c, err)
		return
	}

	token, err := s.Token(user)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"user": user, "token": token})
}

// refreshToken re-signs the caller's token. The admin claim is read from the
// stored user, not from the presented token.
func (s *Server) refreshToken(c *gin.Context) {
	user, err := s.svc.GetUser(c.Request.Context(), callerID(c))
	if err != nil {
		s.writeError(c, err)
		return
	}

	token, err := s.Token(user)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "admin": user.IsAdmin})
}

func (s *Server) me(c *gin.Context) {
	ctx := c.Request.Context()
	user, err := s.svc.GetUser(ctx, callerID(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	st, err := s.svc.GetStatement(ctx, user.ID, nil)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user, "statement": st})
}

func (s *Server) balance(c *gin.Context) {
	var asOf *time.Time
	if raw := c.Query("as_of"); raw != "" {
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "as_of must be RFC3339"})
			return
		}
		asOf = &t
	}

	bal, err := s.svc.GetBalance(c.Request.Context(), callerID(c), asOf)
	if err != nil {
		s.writeError(c, err)
		return
	}

	resp := gin.H{"balance": bal}
	if asOf != nil {
		resp["as_of"] = asOf.UTC()
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) dailyBalance(c *gin.Context) {
	day, err := utils.ParseDay(c.Query("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
		return
	}

	st, err := s.svc.GetBalanceByDate(c.Request.Context(), callerID(c), day)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"date": day.Format(time.DateOnly), "balance": st.Available, "statement": st})
}

func (s *Server) transactions(c *gin.Context) {
	events, err := s.svc.ListTransactions(c.Request.Context(), callerID(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": events})
}

func (s *Server) positions(c *gin.Context) {
	positions, err := s.svc.ListPositions(c.Request.Context(), callerID(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"positions": positions})
}

func (s *Server) deposit(c *gin.Context) {
	var req depositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	position, event, err := s.svc.Deposit(c.Request.Context(), callerID(c), req.Amount, req.Hash)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"position": position, "transaction": event})
}

func (s *Server) requestWithdrawal(c *gin.Context) {
	var req withdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	event, err := s.svc.RequestWithdrawal(c.Request.Context(), callerID(c), req.Amount)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"transaction": event, "status": event.Status()})
}

func (s *Server) pendingWithdrawals(c *gin.Context) {
	events, err := s.svc.ListPendingWithdrawals(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"withdrawals": events})
}

func (s *Server) reviewWithdrawal(approve bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid withdrawal id"})
			return
		}

		event, err := s.svc.ReviewWithdrawal(c.Request.Context(), uint(id), callerID(c), approve)
		if err != nil {
			s.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"transaction": event, "status": event.Status()})
	}
}

func (s *Server) allTransactions(c *gin.Context) {
	events, err := s.svc.ListAllTransactions(c.Request.Context(), callerID(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": events})
}

func (s *Server) transaction(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid transaction id"})
		return
	}

	event, err := s.svc.GetTransaction(c.Request.Context(), callerID(c), uint(id))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transaction": event, "kind": event.Kind(), "status": event.Status()})
}
