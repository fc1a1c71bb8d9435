// Package api exposes the ledger over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/Fi44er/roi_ledger/internal/models"
	"github.com/Fi44er/roi_ledger/internal/roi"
	"github.com/Fi44er/roi_ledger/utils"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type LedgerService interface {
	RegisterUser(ctx context.Context, username string, telegramID *int64, isAdmin bool) (*models.User, error)
	GetUser(ctx context.Context, id uint) (*models.User, error)

	Deposit(ctx context.Context, userID uint, amount decimal.Decimal, hash *string) (*roi.Position, *models.Transaction, error)
	RequestWithdrawal(ctx context.Context, userID uint, amount decimal.Decimal) (*models.Transaction, error)
	ReviewWithdrawal(ctx context.Context, eventID, reviewerID uint, approve bool) (*models.Transaction, error)
	ListPendingWithdrawals(ctx context.Context) ([]models.Transaction, error)

	GetBalance(ctx context.Context, userID uint, asOf *time.Time) (decimal.Decimal, error)
	GetStatement(ctx context.Context, userID uint, asOf *time.Time) (*roi.Statement, error)
	GetBalanceByDate(ctx context.Context, userID uint, day time.Time) (*roi.Statement, error)
	ListTransactions(ctx context.Context, userID uint) ([]models.Transaction, error)
	ListPositions(ctx context.Context, userID uint) ([]roi.Position, error)

	ListAllTransactions(ctx context.Context, callerID uint) ([]models.Transaction, error)
	GetTransaction(ctx context.Context, callerID, id uint) (*models.Transaction, error)
}

type Server struct {
	svc      LedgerService
	logger   *logrus.Entry
	secret   []byte
	tokenTTL time.Duration
}

func NewServer(svc LedgerService, jwtSecret string, logger *utils.Logger) *Server {
	return &Server{
		svc:      svc,
		logger:   logger.WithComponent("api"),
		secret:   []byte(jwtSecret),
		tokenTTL: 30 * 24 * time.Hour,
	}
}

func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(s.logger))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/api/v1")
	v1.POST("/users", s.registerUser)

	authed := v1.Group("")
	authed.Use(AuthMiddleware(s.secret))
	{
		authed.GET("/me", s.me)
		authed.POST("/token/refresh", s.refreshToken)
		authed.GET("/balance", s.balance)
		authed.GET("/balance/daily", s.dailyBalance)
		authed.GET("/transactions", s.transactions)
		authed.GET("/positions", s.positions)
		authed.POST("/deposits", s.deposit)
		authed.POST("/withdrawals", s.requestWithdrawal)

		admin := authed.Group("/withdrawals")
		admin.Use(RequireAdmin())
		admin.GET("/pending", s.pendingWithdrawals)
		admin.POST("/:id/approve", s.reviewWithdrawal(true))
		admin.POST("/:id/reject", s.reviewWithdrawal(false))

		staff := authed.Group("/transactions")
		staff.Use(RequireAdmin())
		staff.GET("/all", s.allTransactions)
		staff.GET("/:id", s.transaction)
	}

	return r
}

// Token signs an API token carrying the user's current admin flag.
func (s *Server) Token(user *models.User) (string, error) {
	return IssueToken(s.secret, user.ID, user.IsAdmin, s.tokenTTL, time.Now())
}
