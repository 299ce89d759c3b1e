package commands

import (
	"fmt"

	"leadAgent/internal/accounts"
	"leadAgent/internal/cli/ui"

	"go.uber.org/zap"
)

// AccountsHandler показывает состояние ротации аккаунтов
type AccountsHandler struct {
	manager *accounts.Manager
	log     *zap.Logger
}

func NewAccountsHandler(manager *accounts.Manager, log *zap.Logger) *AccountsHandler {
	return &AccountsHandler{manager: manager, log: log}
}

// Overview выводит все аккаунты с лимитами и cooldown
func (h *AccountsHandler) Overview() {
	stats, err := h.manager.Overview()
	if err != nil {
		h.log.Error("Ошибка чтения аккаунтов", zap.Error(err))
		fmt.Println(ui.ColorRed + ui.IconCross + " Ошибка чтения аккаунтов" + ui.ColorReset)
		return
	}

	fmt.Println("\n" + ui.ColorBold + ui.IconUser + " Аккаунты:" + ui.ColorReset)
	fmt.Println()
	for _, st := range stats {
		acc := st.Account
		icon, color, text := ui.FormatAccountStatus(acc.Status)
		fmt.Printf("  "+ui.ColorBold+"@%s"+ui.ColorReset+" %s%s %s"+ui.ColorReset+" (profile: %s)\n",
			acc.Username, color, icon, text, acc.BrowserProfile)

		login := ui.ColorGreen + "залогинен" + ui.ColorReset
		if !acc.IsLoggedIn {
			login = ui.ColorRed + "не залогинен" + ui.ColorReset
		}
		line := fmt.Sprintf("сегодня %d/%d, осталось %d, %s", acc.TodaySent, acc.DailyLimit, st.Remaining, login)
		if st.InCooldown && st.AvailableFrom != nil {
			line += fmt.Sprintf(", cooldown до %s", st.AvailableFrom.Format("15:04"))
		}
		fmt.Printf("  "+ui.ColorGray+"└─ %s"+ui.ColorReset+"\n", line)
		fmt.Println()
	}
}
