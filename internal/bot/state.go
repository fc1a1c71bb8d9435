package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	stateDefault                = ""
	stateAwaitingWithdrawAmount = "awaiting_withdraw_amount"
)

func (b *Bot) sendMessage(chatID int64, text string, replyMarkup interface{}) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if replyMarkup != nil {
		msg.ReplyMarkup = replyMarkup
	}
	if _, err := b.API.Send(msg); err != nil {
		b.logger.Errorf("Failed to send message: %v", err)
	}
}

func (b *Bot) answerCallback(callbackID, text string) {
	if _, err := b.API.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		b.logger.Errorf("Failed to answer callback: %v", err)
	}
}

func (b *Bot) isAdmin(chatID int64) bool {
	return b.config.AdminChatID != 0 && chatID == b.config.AdminChatID
}

func (b *Bot) setState(chatID int64, state string) {
	b.stateMutex.Lock()
	defer b.stateMutex.Unlock()
	if state == stateDefault {
		delete(b.userStates, chatID)
	} else {
		b.userStates[chatID] = state
	}
	b.logger.Debugf("Set state for chat %d: %s", chatID, state)
}

func (b *Bot) getUserState(chatID int64) string {
	b.stateMutex.Lock()
	defer b.stateMutex.Unlock()
	return b.userStates[chatID]
}
