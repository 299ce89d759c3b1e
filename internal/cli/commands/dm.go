package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"leadAgent/internal/cli/ui"
	"leadAgent/internal/database"
	"leadAgent/internal/dm"
	"leadAgent/internal/llm"

	"go.uber.org/zap"
)

// DmHandler обрабатывает генерацию черновиков и отправку DM
type DmHandler struct {
	leads     *database.LeadRepository
	campaigns *database.CampaignRepository
	analyzer  llm.Analyzer
	service   *dm.Service
	log       *zap.Logger
}

func NewDmHandler(leads *database.LeadRepository, campaigns *database.CampaignRepository, analyzer llm.Analyzer, service *dm.Service, log *zap.Logger) *DmHandler {
	return &DmHandler{
		leads:     leads,
		campaigns: campaigns,
		analyzer:  analyzer,
		service:   service,
		log:       log,
	}
}

// Draft генерирует три черновика DM для лида и сохраняет их
func (h *DmHandler) Draft(ctx context.Context, idStr string) {
	if h.analyzer == nil {
		fmt.Println(ui.ColorYellow + ui.IconWarning + " AI-клиент не настроен: задайте OPENAI_API_KEY" + ui.ColorReset)
		return
	}
	id, err := strconv.Atoi(idStr)
	if err != nil {
		fmt.Println(ui.ColorRed + ui.IconCross + " Неверный id лида" + ui.ColorReset)
		return
	}
	lead, err := h.leads.GetByID(uint(id))
	if err != nil {
		fmt.Println(ui.ColorRed + ui.IconCross + " Лид не найден" + ui.ColorReset)
		return
	}
	campaign, err := h.campaigns.GetByID(lead.CampaignID)
	if err != nil {
		fmt.Println(ui.ColorRed + ui.IconCross + " Кампания лида не найдена" + ui.ColorReset)
		return
	}

	fmt.Println(ui.ColorCyan + ui.IconDocument + " Генерация черновиков..." + ui.ColorReset)
	drafts, err := h.analyzer.GenerateDmDrafts(ctx, llm.ProfileInput{
		Username:   lead.Username,
		FullName:   lead.FullName,
		Bio:        lead.Biography,
		Followers:  lead.FollowersCount,
		Posts:      lead.PostsCount,
		IsBusiness: lead.IsBusinessAccount,
	}, campaign.Context, &lead.ID)
	if err != nil {
		h.log.Error("Ошибка генерации черновиков", zap.Error(err))
		fmt.Printf(ui.ColorRed+ui.IconCross+" Ошибка:"+ui.ColorReset+" %v\n", err)
		return
	}

	variants := []struct {
		style   string
		content string
	}{
		{"PROFESSIONAL", drafts.Professional},
		{"FRIENDLY", drafts.Friendly},
		{"VALUE_FOCUSED", drafts.ValueFocused},
	}
	fmt.Println()
	for _, v := range variants {
		if v.content == "" {
			continue
		}
		msg := &database.DmMessage{
			LeadID:  lead.ID,
			Style:   v.style,
			Content: v.content,
			Status:  database.DmStatusAIGenerated,
		}
		if err := h.leads.CreateDmMessage(msg); err != nil {
			fmt.Printf(ui.ColorRed+ui.IconCross+" Ошибка сохранения (%s):"+ui.ColorReset+" %v\n", v.style, err)
			continue
		}
		fmt.Printf(ui.ColorGreen+ui.IconCheckmark+" #%d"+ui.ColorReset+" "+ui.ColorBold+"%s"+ui.ColorReset+"\n", msg.ID, v.style)
		fmt.Printf("  %s\n\n", strings.ReplaceAll(v.content, "\n", "\n  "))
	}
	fmt.Println(ui.ColorGray + "Подтвердите выбранный вариант: approve <id>, затем send <id>" + ui.ColorReset)
}

// Approve подтверждает черновик DM для отправки
func (h *DmHandler) Approve(idStr string) {
	id, err := strconv.Atoi(idStr)
	if err != nil {
		fmt.Println(ui.ColorRed + ui.IconCross + " Неверный id сообщения" + ui.ColorReset)
		return
	}
	if err := h.service.Approve(uint(id)); err != nil {
		h.log.Error("Ошибка подтверждения DM", zap.Error(err))
		fmt.Printf(ui.ColorRed+ui.IconCross+" Ошибка:"+ui.ColorReset+" %v\n", err)
		return
	}
	fmt.Printf(ui.ColorGreen+ui.IconCheckmark+" Сообщение #%d подтверждено"+ui.ColorReset+", отправка: send %d\n", id, id)
}

// Compose сохраняет DM с текстом оператора, готовое к отправке без подтверждения
func (h *DmHandler) Compose(idStr, text string) {
	id, err := strconv.Atoi(idStr)
	if err != nil {
		fmt.Println(ui.ColorRed + ui.IconCross + " Неверный id лида" + ui.ColorReset)
		return
	}
	msg, err := h.service.CreateUserDm(uint(id), text, "", nil)
	if err != nil {
		h.log.Error("Ошибка сохранения DM", zap.Error(err))
		fmt.Printf(ui.ColorRed+ui.IconCross+" Ошибка:"+ui.ColorReset+" %v\n", err)
		return
	}
	fmt.Printf(ui.ColorGreen+ui.IconCheckmark+" Сообщение #%d сохранено"+ui.ColorReset+", отправка: send %d\n", msg.ID, msg.ID)
}

// Send отправляет подтвержденное DM-сообщение
func (h *DmHandler) Send(ctx context.Context, idStr string, textOnly bool) {
	id, err := strconv.Atoi(idStr)
	if err != nil {
		fmt.Println(ui.ColorRed + ui.IconCross + " Неверный id сообщения" + ui.ColorReset)
		return
	}

	fmt.Println(ui.ColorCyan + ui.IconMail + " Отправка..." + ui.ColorReset)
	outcome, err := h.service.SendMessage(ctx, uint(id), textOnly)
	if err != nil {
		if outcome != nil && outcome.TextSent {
			fmt.Printf(ui.ColorYellow+"! Текст отправлен, изображения нет:"+ui.ColorReset+" %v\n", err)
			fmt.Println(ui.ColorGray + "Повторить без вложений: send-text " + idStr + ui.ColorReset)
			return
		}
		h.log.Error("Ошибка отправки DM", zap.Error(err))
		fmt.Printf(ui.ColorRed+ui.IconCross+" Ошибка:"+ui.ColorReset+" %v\n", err)
		return
	}

	fmt.Printf(ui.ColorGreen+ui.IconCheckmark+" Отправлено"+ui.ColorReset+" (вложений: %d, фаза изображений: %s)\n",
		outcome.ImageCount, outcome.ImagePhase)
}
