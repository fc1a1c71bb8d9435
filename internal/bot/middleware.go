package bot

import (
	"context"
	"errors"
	"strconv"

	"github.com/Fi44er/roi_ledger/internal/models"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// withUserCheck resolves the sender to a ledger user, registering first-time
// chats on the fly.
func (b *Bot) withUserCheck(handler func(context.Context, tgbotapi.Update, *models.User)) func(context.Context, tgbotapi.Update) {
	return func(ctx context.Context, update tgbotapi.Update) {
		from := update.Message.From
		if from == nil {
			return
		}
		chatID := update.Message.Chat.ID

		user, err := b.service.GetUserByTelegramID(ctx, from.ID)
		if errors.Is(err, models.ErrNotFound) {
			username := from.UserName
			if username == "" {
				username = "tg" + strconv.FormatInt(from.ID, 10)
			}
			telegramID := from.ID
			user, err = b.service.RegisterUser(ctx, username, &telegramID, b.isAdmin(from.ID))
		}
		if err != nil {
			b.logger.Errorf("Failed to resolve user %d: %v", from.ID, err)
			b.sendMessage(chatID, "Произошла ошибка. Попробуйте позже.", nil)
			return
		}

		handler(ctx, update, user)
	}
}
