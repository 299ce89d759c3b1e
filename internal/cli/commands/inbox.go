package commands

import (
	"context"
	"fmt"

	"leadAgent/internal/cli/ui"
	"leadAgent/internal/inbox"

	"go.uber.org/zap"
)

// InboxHandler обрабатывает проверку входящих
type InboxHandler struct {
	service *inbox.Service
	log     *zap.Logger
}

func NewInboxHandler(service *inbox.Service, log *zap.Logger) *InboxHandler {
	return &InboxHandler{service: service, log: log}
}

// CheckAll проверяет inbox всех залогиненных аккаунтов
func (h *InboxHandler) CheckAll(ctx context.Context) {
	fmt.Println(ui.ColorCyan + ui.IconInbox + " Проверка входящих..." + ui.ColorReset)
	byProfile, total, err := h.service.CheckAllAccounts(ctx)
	if err != nil {
		h.log.Error("Ошибка проверки inbox", zap.Error(err))
		fmt.Printf(ui.ColorRed+ui.IconCross+" Ошибка:"+ui.ColorReset+" %v\n", err)
		return
	}

	fmt.Println()
	for profile, report := range byProfile {
		fmt.Printf("  "+ui.ColorBold+"%s"+ui.ColorReset+": просмотрено %d, новых ответов %d\n",
			profile, report.Examined, report.Created)
		for _, e := range report.Errors {
			fmt.Printf("    "+ui.ColorYellow+"! %s"+ui.ColorReset+"\n", e)
		}
	}
	fmt.Printf("\n"+ui.ColorGreen+ui.IconCheckmark+" Всего новых ответов: %d"+ui.ColorReset+"\n\n", total)
}
