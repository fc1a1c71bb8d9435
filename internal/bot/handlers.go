package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Fi44er/roi_ledger/internal/models"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"
)

func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	b.withUserCheck(func(ctx context.Context, update tgbotapi.Update, user *models.User) {
		msg := update.Message
		chatID := msg.Chat.ID
		text := strings.TrimSpace(msg.Text)

		b.logger.Infof("Processing message from user %d: %s", user.ID, text)

		if b.getUserState(chatID) == stateAwaitingWithdrawAmount && !msg.IsCommand() {
			b.setState(chatID, stateDefault)
			b.handleWithdrawAmount(ctx, chatID, user, text)
			return
		}

		switch {
		case msg.Command() == "start":
			b.handleStart(ctx, chatID, user)
		case msg.Command() == "balance" || text == btnBalance:
			b.handleBalanceRequest(ctx, chatID, user)
		case msg.Command() == "token":
			b.handleToken(chatID, user)
		case msg.Command() == "deposit":
			b.handleDeposit(ctx, chatID, user, msg.CommandArguments())
		case msg.Command() == "withdraw":
			if args := strings.TrimSpace(msg.CommandArguments()); args != "" {
				b.handleWithdrawAmount(ctx, chatID, user, args)
				return
			}
			b.handleWithdrawRequest(ctx, chatID, user)
		case text == btnWithdraw:
			b.handleWithdrawRequest(ctx, chatID, user)
		case msg.Command() == "pending" || text == btnPending:
			b.withAdmin(chatID, func() { b.handleWithdrawalRequests(ctx, chatID) })
		case msg.Command() == "approve" || msg.Command() == "reject":
			approve := msg.Command() == "approve"
			b.withAdmin(chatID, func() { b.handleReviewCommand(ctx, chatID, user, msg.CommandArguments(), approve) })
		default:
			b.sendMessage(chatID, "Неизвестная команда. Используйте меню.", GetMainMenu(b.isAdmin(chatID)))
		}
	})(ctx, update)
}

func (b *Bot) withAdmin(chatID int64, fn func()) {
	if !b.isAdmin(chatID) {
		b.sendMessage(chatID, "Это действие доступно только администратору.", nil)
		return
	}
	fn()
}

func (b *Bot) handleStart(_ context.Context, chatID int64, user *models.User) {
	welcomeText := fmt.Sprintf(
		"Добро пожаловать! Ваш кошелёк: `%s`\n\n"+
			"Пополнение: /deposit <сумма> [хэш]\n"+
			"Токен для API: /token\n"+
			"Минимальная сумма: `100`",
		user.Wallet.Address,
	)
	b.sendMessage(chatID, welcomeText, GetMainMenu(b.isAdmin(chatID)))
}

func (b *Bot) handleBalanceRequest(ctx context.Context, chatID int64, user *models.User) {
	st, err := b.service.GetStatement(ctx, user.ID, nil)
	if err != nil {
		b.logger.Errorf("Failed to get statement for user %d: %v", user.ID, err)
		b.sendMessage(chatID, userErrorText(err), GetMainMenu(b.isAdmin(chatID)))
		return
	}

	msgText := fmt.Sprintf(
		"💰 Доступно: `%s`\n\n"+
			"Вложено: `%s`\n"+
			"Начислено: `%s`\n"+
			"Выведено и в заявках: `%s`\n"+
			"Активных позиций: %d, завершённых: %d",
		st.Available.StringFixed(2),
		st.Principal.StringFixed(2),
		st.Earned.StringFixed(8),
		st.Withdrawn.StringFixed(2),
		st.ActivePositions,
		st.CompletedPositions,
	)
	b.sendMessage(chatID, msgText, GetMainMenu(b.isAdmin(chatID)))
}

// handleToken hands the Telegram-authenticated user a token for the HTTP API.
func (b *Bot) handleToken(chatID int64, user *models.User) {
	if b.issueToken == nil {
		b.sendMessage(chatID, "HTTP API отключён.", nil)
		return
	}

	token, err := b.issueToken(user)
	if err != nil {
		b.logger.Errorf("Failed to issue token for user %d: %v", user.ID, err)
		b.sendMessage(chatID, "Произошла ошибка. Попробуйте позже.", nil)
		return
	}
	b.logger.Infof("Issued API token for user %d (admin=%t)", user.ID, user.IsAdmin)
	b.sendMessage(chatID, fmt.Sprintf("🔑 Токен для API:\n`%s`", token), nil)
}

func (b *Bot) handleDeposit(ctx context.Context, chatID int64, user *models.User, args string) {
	fields := strings.Fields(args)
	if len(fields) == 0 || len(fields) > 2 {
		b.sendMessage(chatID, "Использование: /deposit <сумма> [хэш]", nil)
		return
	}

	amount, err := parseAmount(fields[0])
	if err != nil {
		b.sendMessage(chatID, "❌ Неверная сумма. Введите положительное число.", nil)
		return
	}
	var hash *string
	if len(fields) == 2 {
		hash = &fields[1]
	}

	position, _, err := b.service.Deposit(ctx, user.ID, amount, hash)
	if err != nil {
		b.logger.Warnf("Deposit by user %d failed: %v", user.ID, err)
		b.sendMessage(chatID, userErrorText(err), GetMainMenu(b.isAdmin(chatID)))
		return
	}

	b.notifyAboutDeposit(chatID, position)
}

func (b *Bot) handleCallbackQuery(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	if !b.isAdmin(callback.From.ID) {
		b.answerCallback(callback.ID, "Это действие доступно только администратору.")
		return
	}
	b.handleAdminWithdrawCallback(ctx, callback)
}

// parseAmount accepts both "12.5" and "12,5".
func parseAmount(text string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(text), ",", "."))
	if err != nil {
		return decimal.Zero, err
	}
	if !amount.IsPositive() {
		return decimal.Zero, fmt.Errorf("amount must be positive: %s", text)
	}
	return amount, nil
}

func parseID(text string) (uint, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(text), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid id %q", text)
	}
	return uint(id), nil
}

func userErrorText(err error) string {
	var insufficient *models.InsufficientFundsError
	var cooldown *models.CooldownError

	switch {
	case errors.As(err, &insufficient):
		return fmt.Sprintf(
			"❌ Недостаточно средств.\n\nДоступно: `%s`\nЗапрошено: `%s`\nНе хватает: `%s`",
			insufficient.Available.StringFixed(2),
			insufficient.Requested.StringFixed(2),
			insufficient.Shortfall().StringFixed(2),
		)
	case errors.As(err, &cooldown):
		return fmt.Sprintf("⏳ Вывод доступен раз в 7 дней. Осталось дней: %d", cooldown.DaysRemaining)
	case errors.Is(err, models.ErrInvalidDepositAmount):
		return "❌ Минимальная сумма пополнения: `100`"
	case errors.Is(err, models.ErrInvalidAmount):
		return "❌ Неверная сумма. Введите положительное число."
	case errors.Is(err, models.ErrDuplicateHash):
		return "❌ Транзакция с таким хэшем уже зачислена."
	case errors.Is(err, models.ErrAlreadyProcessed):
		return "ℹ️ Заявка уже обработана."
	case errors.Is(err, models.ErrNotPending):
		return "❌ Это не заявка на вывод."
	case errors.Is(err, models.ErrNotFound):
		return "❌ Не найдено."
	case errors.Is(err, models.ErrForbidden):
		return "Это действие доступно только администратору."
	default:
		return "Произошла ошибка. Попробуйте позже."
	}
}
