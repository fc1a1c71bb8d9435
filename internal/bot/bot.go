package bot

import (
	"context"
	"sync"
	"time"

	"github.com/Fi44er/roi_ledger/config"
	"github.com/Fi44er/roi_ledger/internal/models"
	"github.com/Fi44er/roi_ledger/internal/roi"
	"github.com/Fi44er/roi_ledger/utils"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// BotAPI is the part of *tgbotapi.BotAPI the bot uses.
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

type LedgerService interface {
	RegisterUser(ctx context.Context, username string, telegramID *int64, isAdmin bool) (*models.User, error)
	GetUserByTelegramID(ctx context.Context, telegramID int64) (*models.User, error)
	GetStatement(ctx context.Context, userID uint, asOf *time.Time) (*roi.Statement, error)
	Deposit(ctx context.Context, userID uint, amount decimal.Decimal, hash *string) (*roi.Position, *models.Transaction, error)
	RequestWithdrawal(ctx context.Context, userID uint, amount decimal.Decimal) (*models.Transaction, error)
	ReviewWithdrawal(ctx context.Context, eventID, reviewerID uint, approve bool) (*models.Transaction, error)
	ListPendingWithdrawals(ctx context.Context) ([]models.Transaction, error)
}

type Bot struct {
	API        BotAPI
	service    LedgerService
	logger     *logrus.Entry
	userStates map[int64]string
	stateMutex *sync.Mutex
	config     *config.Config

	issueToken TokenIssuer
}

// TokenIssuer signs an API token for a user the bot has already identified.
type TokenIssuer func(user *models.User) (string, error)

func NewBot(
	api BotAPI,
	service LedgerService,
	logger *utils.Logger,
	config *config.Config,
) *Bot {
	return &Bot{
		API:        api,
		service:    service,
		logger:     logger.WithComponent("bot"),
		userStates: make(map[int64]string),
		stateMutex: &sync.Mutex{},
		config:     config,
	}
}

// SetTokenIssuer enables the /token command.
func (b *Bot) SetTokenIssuer(fn TokenIssuer) {
	b.issueToken = fn
}

// Start polls Telegram until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	b.logger.Info("Starting bot...")
	updates := b.API.GetUpdatesChan(tgbotapi.NewUpdate(0))

	for {
		select {
		case <-ctx.Done():
			b.API.StopReceivingUpdates()
			b.logger.Info("Bot stopped")
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.logger.Debugf("Received update: %d", update.UpdateID)
			if update.CallbackQuery != nil {
				b.handleCallbackQuery(ctx, update.CallbackQuery)
				continue
			}
			if update.Message != nil {
				b.HandleUpdate(ctx, update)
			}
		}
	}
}

const (
	btnBalance  = "📊 Баланс"
	btnWithdraw = "💸 Вывести"
	btnPending  = "📋 Заявки на вывод"
)

func GetMainMenu(isAdmin bool) tgbotapi.ReplyKeyboardMarkup {
	rows := [][]tgbotapi.KeyboardButton{
		{
			tgbotapi.NewKeyboardButton(btnBalance),
			tgbotapi.NewKeyboardButton(btnWithdraw),
		},
	}

	if isAdmin {
		rows = append(rows, []tgbotapi.KeyboardButton{
			tgbotapi.NewKeyboardButton(btnPending),
		})
	}

	return tgbotapi.NewReplyKeyboard(rows...)
}
