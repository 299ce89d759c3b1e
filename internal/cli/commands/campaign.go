package commands

import (
	"context"
	"fmt"
	"strconv"

	"leadAgent/internal/cli/ui"
	"leadAgent/internal/database"
	"leadAgent/internal/discovery"

	"go.uber.org/zap"
)

// CampaignHandler обрабатывает команды кампаний
type CampaignHandler struct {
	campaigns *database.CampaignRepository
	leads     *database.LeadRepository
	runner    *discovery.Runner
	log       *zap.Logger
}

func NewCampaignHandler(campaigns *database.CampaignRepository, leads *database.LeadRepository, runner *discovery.Runner, log *zap.Logger) *CampaignHandler {
	return &CampaignHandler{
		campaigns: campaigns,
		leads:     leads,
		runner:    runner,
		log:       log,
	}
}

// List выводит список кампаний
func (h *CampaignHandler) List() {
	list, err := h.campaigns.List(50, 0)
	if err != nil {
		h.log.Error("Ошибка чтения кампаний", zap.Error(err))
		fmt.Println(ui.ColorRed + ui.IconCross + " Ошибка чтения кампаний" + ui.ColorReset)
		return
	}
	fmt.Println("\n" + ui.ColorBold + ui.IconList + " Кампании:" + ui.ColorReset)
	fmt.Println()
	for _, c := range list {
		state := ui.ColorGreen + "активна" + ui.ColorReset
		if !c.IsActive {
			state = ui.ColorGray + "остановлена" + ui.ColorReset
		}
		fmt.Printf("  "+ui.ColorBold+"#%d"+ui.ColorReset+" %s (%s)\n", c.ID, c.Name, state)
		fmt.Printf("  "+ui.ColorGray+"└─"+ui.ColorReset+" #%v, подписчики %d-%d, максимум %d лидов\n",
			c.HashtagList(), c.MinFollowers, c.MaxFollowers, c.MaxLeads)
		fmt.Println()
	}
}

// Run запускает кампанию: скан hashtag-ов, AI-оценка, создание лидов
func (h *CampaignHandler) Run(ctx context.Context, idStr, browserProfile string) {
	id, err := strconv.Atoi(idStr)
	if err != nil {
		fmt.Println(ui.ColorRed + ui.IconCross + " Неверный id кампании" + ui.ColorReset)
		return
	}

	fmt.Println(ui.ColorCyan + ui.IconPlay + " Запуск кампании, это займет несколько минут..." + ui.ColorReset)
	report, err := h.runner.RunCampaign(ctx, uint(id), browserProfile)
	if err != nil {
		h.log.Error("Ошибка запуска кампании", zap.Error(err))
		fmt.Printf(ui.ColorRed+ui.IconCross+" Ошибка:"+ui.ColorReset+" %v\n", err)
		return
	}

	fmt.Println()
	fmt.Printf(ui.ColorGreen+ui.IconCheckmark+" Готово:"+ui.ColorReset+" просканировано %d, создано %d лидов, пропущено %d\n",
		report.Scanned, report.LeadsCreated, report.Skipped)
	for _, e := range report.Errors {
		fmt.Printf("  "+ui.ColorYellow+"! %s"+ui.ColorReset+"\n", e)
	}
	fmt.Println()
}

// Leads выводит лиды кампании
func (h *CampaignHandler) Leads(idStr string) {
	id, err := strconv.Atoi(idStr)
	if err != nil {
		fmt.Println(ui.ColorRed + ui.IconCross + " Неверный id кампании" + ui.ColorReset)
		return
	}
	leads, err := h.leads.ListByCampaign(uint(id), 100, 0)
	if err != nil {
		fmt.Println(ui.ColorRed + ui.IconCross + " Ошибка чтения лидов" + ui.ColorReset)
		return
	}

	fmt.Println("\n" + ui.ColorBold + ui.IconTarget + " Лиды кампании:" + ui.ColorReset)
	fmt.Println()
	for _, l := range leads {
		icon, color, text := ui.FormatLeadStatus(l.Status)
		fmt.Printf("  "+ui.ColorBold+"#%d"+ui.ColorReset+" @%s %s%s %s"+ui.ColorReset+" "+ui.ColorGray+"балл %.1f"+ui.ColorReset+"\n",
			l.ID, l.Username, color, icon, text, l.Score)
		fmt.Printf("  "+ui.ColorGray+"└─"+ui.ColorReset+" %s, %d подписчиков\n", l.FullName, l.FollowersCount)
		fmt.Println()
	}
}

// Activity выводит журнал активности
func (h *CampaignHandler) Activity() {
	logs, err := h.campaigns.RecentActivity(30)
	if err != nil {
		fmt.Println(ui.ColorRed + ui.IconCross + " Ошибка чтения журнала" + ui.ColorReset)
		return
	}
	fmt.Println("\n" + ui.ColorBold + ui.IconChart + " Журнал активности:" + ui.ColorReset)
	fmt.Println()
	for _, entry := range logs {
		fmt.Printf("  "+ui.ColorGray+"%s"+ui.ColorReset+" %s %s\n",
			entry.CreatedAt.Format("01-02 15:04"), entry.Action, ui.ColorGray+entry.Metadata+ui.ColorReset)
	}
	fmt.Println()
}
