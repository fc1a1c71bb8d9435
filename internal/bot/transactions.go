package bot

import (
	"fmt"

	"github.com/Fi44er/roi_ledger/internal/roi"
)

func (b *Bot) notifyAboutDeposit(chatID int64, position *roi.Position) {
	b.logger.Infof("NOTIFY: position %d opened for user %d", position.ID, position.OwnerID)

	msg := fmt.Sprintf(
		"✅ Пополнение зачислено!\n\n"+
			"💰 *Сумма:* `%s`\n"+
			"📈 *Уровень:* %d (`%s%%` в день, максимум `%s%%`)\n"+
			"⏱ *Срок:* до %s UTC\n"+
			"🎯 *Итоговый доход:* `%s`",
		position.DepositAmount.StringFixed(2),
		position.TierLevel,
		position.DailyPct.StringFixed(2),
		position.TotalROIPct.String(),
		position.EndsAt().UTC().Format("2006-01-02 15:04"),
		position.Cap().StringFixed(2),
	)
	b.sendMessage(chatID, msg, GetMainMenu(b.isAdmin(chatID)))
}
