// Package server поднимает REST API дашборда лидогенерации поверх gin.
package server

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"leadAgent/internal/accounts"
	"leadAgent/internal/config"
	"leadAgent/internal/database"
	"leadAgent/internal/discovery"
	"leadAgent/internal/dm"
	"leadAgent/internal/inbox"
	"leadAgent/internal/logger"
)

type Server struct {
	cfg       *config.Cfg
	log       *logger.Zap
	campaigns *database.CampaignRepository
	leads     *database.LeadRepository
	accounts  *accounts.Manager
	runner    *discovery.Runner
	dmService *dm.Service
	inbox     *inbox.Service
}

func New(cfg *config.Cfg, log *logger.Zap, db *database.Database, acc *accounts.Manager, runner *discovery.Runner, dmService *dm.Service, inboxService *inbox.Service) *Server {
	return &Server{
		cfg:       cfg,
		log:       log,
		campaigns: database.NewCampaignRepository(db.DB),
		leads:     database.NewLeadRepository(db.DB),
		accounts:  acc,
		runner:    runner,
		dmService: dmService,
		inbox:     inboxService,
	}
}

func (s *Server) Run(ctx context.Context) error {
	r := gin.New()
	r.Use(gin.Recovery())

	// Простейший лог-мидлвар
	r.Use(func(c *gin.Context) {
		s.log.Info("HTTP",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
		)
		c.Next()
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Список кампаний
	r.GET("/api/campaigns", func(c *gin.Context) {
		list, err := s.campaigns.List(50, 0)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
			return
		}
		c.JSON(http.StatusOK, list)
	})

	// Запустить кампанию: скан hashtag-ов + AI-оценка + создание лидов
	r.POST("/api/campaigns/:id/run", func(c *gin.Context) {
		id, ok := paramID(c)
		if !ok {
			return
		}
		var req struct {
			BrowserProfile string `json:"browser_profile"`
		}
		_ = c.ShouldBindJSON(&req)

		report, err := s.runner.RunCampaign(c.Request.Context(), id, req.BrowserProfile)
		if err != nil {
			s.log.Error("запуск кампании", zap.Uint("campaign_id", id), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, report)
	})

	// Лиды кампании
	r.GET("/api/campaigns/:id/leads", func(c *gin.Context) {
		id, ok := paramID(c)
		if !ok {
			return
		}
		leads, err := s.leads.ListByCampaign(id, 100, 0)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
			return
		}
		c.JSON(http.StatusOK, leads)
	})

	// Сохранить DM с текстом пользователя: сразу готово к отправке
	r.POST("/api/leads/:id/dm", func(c *gin.Context) {
		id, ok := paramID(c)
		if !ok {
			return
		}
		var req struct {
			Content   string   `json:"content" binding:"required"`
			Style     string   `json:"style"`
			ImageURLs []string `json:"image_urls"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		msg, err := s.dmService.CreateUserDm(id, req.Content, req.Style, req.ImageURLs)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, msg)
	})

	// Подтвердить черновик DM
	r.POST("/api/dm/:id/approve", func(c *gin.Context) {
		id, ok := paramID(c)
		if !ok {
			return
		}
		if err := s.dmService.Approve(id); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "approved"})
	})

	// Отправить одно DM-сообщение
	r.POST("/api/dm/:id/send", func(c *gin.Context) {
		id, ok := paramID(c)
		if !ok {
			return
		}
		var req struct {
			TextOnly bool `json:"text_only"`
		}
		_ = c.ShouldBindJSON(&req)

		outcome, err := s.dmService.SendMessage(c.Request.Context(), id, req.TextOnly)
		if err != nil {
			status := http.StatusInternalServerError
			if outcome != nil && outcome.TextSent {
				// Текст дошел, сломалась только фаза изображений
				status = http.StatusOK
			}
			resp := gin.H{"error": err.Error()}
			if outcome != nil {
				resp["text_sent"] = outcome.TextSent
				resp["image_phase"] = outcome.ImagePhase.String()
			}
			c.JSON(status, resp)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"text_sent":   outcome.TextSent,
			"image_count": outcome.ImageCount,
			"image_phase": outcome.ImagePhase.String(),
		})
	})

	// Пакетная отправка
	r.POST("/api/dm/batch", func(c *gin.Context) {
		var req struct {
			MessageIDs []uint `json:"message_ids" binding:"required"`
			TextOnly   bool   `json:"text_only"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		result, err := s.dmService.SendBatch(c.Request.Context(), req.MessageIDs, req.TextOnly)
		if err != nil && result == nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, result)
	})

	// Проверка inbox всех залогиненных аккаунтов
	r.POST("/api/inbox/check", func(c *gin.Context) {
		byProfile, total, err := s.inbox.CheckAllAccounts(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"by_profile": byProfile, "total_created": total})
	})

	// Состояние ротации аккаунтов
	r.GET("/api/accounts", func(c *gin.Context) {
		stats, err := s.accounts.Overview()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
			return
		}
		c.JSON(http.StatusOK, stats)
	})

	// Журнал активности
	r.GET("/api/activity", func(c *gin.Context) {
		limit := 50
		if v := c.Query("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
				limit = n
			}
		}
		logs, err := s.campaigns.RecentActivity(limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
			return
		}
		c.JSON(http.StatusOK, logs)
	})

	addr := fmt.Sprintf("%s:%s", s.cfg.App.Host, s.cfg.App.Port)
	s.log.Info("Сервер запущен", zap.String("addr", addr))
	return r.Run(addr)
}

func paramID(c *gin.Context) (uint, bool) {
	id64, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad id"})
		return 0, false
	}
	return uint(id64), true
}
