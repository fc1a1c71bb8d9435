package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/Fi44er/roi_ledger/internal/models"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const withdrawalsPerPage = 5

func (b *Bot) handleWithdrawRequest(ctx context.Context, chatID int64, user *models.User) {
	st, err := b.service.GetStatement(ctx, user.ID, nil)
	if err != nil {
		b.logger.Errorf("Failed to get statement for user %d: %v", user.ID, err)
		b.sendMessage(chatID, userErrorText(err), GetMainMenu(b.isAdmin(chatID)))
		return
	}
	if !st.Available.IsPositive() {
		b.sendMessage(chatID, "❌ На вашем балансе недостаточно средств для вывода.", GetMainMenu(b.isAdmin(chatID)))
		return
	}

	msg := fmt.Sprintf("💰 Доступно: `%s`\n\nВведите сумму для вывода:", st.Available.StringFixed(8))
	b.setState(chatID, stateAwaitingWithdrawAmount)
	b.sendMessage(chatID, msg, tgbotapi.NewRemoveKeyboard(true))
}

func (b *Bot) handleWithdrawAmount(ctx context.Context, chatID int64, user *models.User, text string) {
	amount, err := parseAmount(text)
	if err != nil {
		b.sendMessage(chatID, "❌ Неверная сумма. Введите положительное число.", GetMainMenu(b.isAdmin(chatID)))
		return
	}

	event, err := b.service.RequestWithdrawal(ctx, user.ID, amount)
	if err != nil {
		b.logger.Warnf("Withdrawal by user %d refused: %v", user.ID, err)
		b.sendMessage(chatID, userErrorText(err), GetMainMenu(b.isAdmin(chatID)))
		return
	}

	b.sendMessage(
		chatID,
		fmt.Sprintf("✅ Запрос на вывод #%d на сумму `%s` создан и отправлен на обработку.", event.ID, event.Amount.StringFixed(2)),
		GetMainMenu(b.isAdmin(chatID)),
	)
}

// NotifyAdminAboutWithdrawal is registered as the service's withdrawal notifier.
func (b *Bot) NotifyAdminAboutWithdrawal(user *models.User, ev *models.Transaction) {
	if b.config.AdminChatID == 0 {
		return
	}

	msg := fmt.Sprintf(
		"🆕 Новый запрос на вывод #%d\n\n"+
			"👤 Пользователь: `%d`\n"+
			"💰 Сумма: `%s`",
		ev.ID,
		user.ID,
		ev.Amount.StringFixed(8),
	)
	b.sendMessage(b.config.AdminChatID, msg, reviewKeyboard(ev.ID))
}

func reviewKeyboard(id uint) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Подтвердить", fmt.Sprintf("admin_approve:%d", id)),
			tgbotapi.NewInlineKeyboardButtonData("❌ Отклонить", fmt.Sprintf("admin_reject:%d", id)),
		),
	)
}

func (b *Bot) handleWithdrawalRequests(ctx context.Context, chatID int64) {
	withdrawals, err := b.service.ListPendingWithdrawals(ctx)
	if err != nil {
		b.logger.Errorf("Failed to get pending withdrawals: %v", err)
		b.sendMessage(chatID, "❌ Ошибка получения запросов на вывод", nil)
		return
	}
	if len(withdrawals) == 0 {
		b.sendMessage(chatID, "ℹ️ Нет ожидающих запросов на вывод.", nil)
		return
	}
	b.sendWithdrawalsPage(chatID, withdrawals, 0)
}

func (b *Bot) sendWithdrawalsPage(chatID int64, withdrawals []models.Transaction, page int) {
	start := page * withdrawalsPerPage
	if start >= len(withdrawals) || start < 0 {
		start = 0
		page = 0
	}
	end := start + withdrawalsPerPage
	if end > len(withdrawals) {
		end = len(withdrawals)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📋 Запросы на вывод (страница %d из %d):\n\n", page+1, (len(withdrawals)-1)/withdrawalsPerPage+1))

	keyboardRows := make([][]tgbotapi.InlineKeyboardButton, 0, end-start+1)
	for i := start; i < end; i++ {
		w := withdrawals[i]
		sb.WriteString(fmt.Sprintf(
			"🆔 ID: %d\n👛 Кошелёк: %d\n💰 Сумма: `%s`\n🕒 %s\n\n",
			w.ID,
			w.DestinationWalletID,
			w.Amount.StringFixed(8),
			w.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
		))
		keyboardRows = append(keyboardRows, reviewKeyboard(w.ID).InlineKeyboard[0])
	}

	if len(withdrawals) > withdrawalsPerPage {
		paginationRow := make([]tgbotapi.InlineKeyboardButton, 0, 2)
		if page > 0 {
			paginationRow = append(paginationRow, tgbotapi.NewInlineKeyboardButtonData("⬅️ Назад", fmt.Sprintf("admin_withdraw_page:%d", page-1)))
		}
		if end < len(withdrawals) {
			paginationRow = append(paginationRow, tgbotapi.NewInlineKeyboardButtonData("Вперед ➡️", fmt.Sprintf("admin_withdraw_page:%d", page+1)))
		}
		if len(paginationRow) > 0 {
			keyboardRows = append(keyboardRows, paginationRow)
		}
	}

	b.sendMessage(chatID, sb.String(), tgbotapi.NewInlineKeyboardMarkup(keyboardRows...))
}

func (b *Bot) handleAdminWithdrawCallback(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	data := callback.Data

	switch {
	case strings.HasPrefix(data, "admin_withdraw_page:"):
		page, err := strconv.Atoi(strings.TrimPrefix(data, "admin_withdraw_page:"))
		if err != nil {
			b.logger.Errorf("Invalid page number in callback: %v", err)
			return
		}
		withdrawals, err := b.service.ListPendingWithdrawals(ctx)
		if err != nil {
			b.logger.Errorf("Failed to get pending withdrawals: %v", err)
			return
		}
		if callback.Message != nil {
			b.sendWithdrawalsPage(callback.Message.Chat.ID, withdrawals, page)
		}
		b.answerCallback(callback.ID, "")

	case strings.HasPrefix(data, "admin_approve:"), strings.HasPrefix(data, "admin_reject:"):
		approve := strings.HasPrefix(data, "admin_approve:")
		raw := data[strings.IndexByte(data, ':')+1:]

		admin, err := b.service.GetUserByTelegramID(ctx, callback.From.ID)
		if err != nil {
			b.logger.Errorf("Admin %d is not registered: %v", callback.From.ID, err)
			b.answerCallback(callback.ID, userErrorText(err))
			return
		}

		text, err := b.review(ctx, admin, raw, approve)
		if err != nil {
			b.answerCallback(callback.ID, userErrorText(err))
			return
		}

		if callback.Message != nil {
			edit := tgbotapi.NewEditMessageText(callback.Message.Chat.ID, callback.Message.MessageID, text)
			if _, err := b.API.Send(edit); err != nil {
				b.logger.Warnf("Failed to edit review message: %v", err)
			}
		}
		b.answerCallback(callback.ID, text)

	default:
		b.logger.Warnf("Unknown callback data: %s", data)
		b.answerCallback(callback.ID, "")
	}
}

func (b *Bot) handleReviewCommand(ctx context.Context, chatID int64, admin *models.User, args string, approve bool) {
	text, err := b.review(ctx, admin, args, approve)
	if err != nil {
		b.sendMessage(chatID, userErrorText(err), nil)
		return
	}
	b.sendMessage(chatID, text, nil)
}

func (b *Bot) review(ctx context.Context, admin *models.User, rawID string, approve bool) (string, error) {
	id, err := parseID(rawID)
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrNotFound, err)
	}

	ev, err := b.service.ReviewWithdrawal(ctx, id, admin.ID, approve)
	if err != nil {
		b.logger.Warnf("Review of withdrawal %d failed: %v", id, err)
		return "", err
	}

	if approve {
		return fmt.Sprintf("✅ Вывод #%d подтверждён.", ev.ID), nil
	}
	return fmt.Sprintf("❌ Вывод #%d отклонён, средства возвращены.", ev.ID), nil
}
