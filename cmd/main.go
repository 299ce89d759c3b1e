package main

import (
	"context"

	"leadAgent/internal/accounts"
	"leadAgent/internal/browser"
	"leadAgent/internal/cli"
	"leadAgent/internal/config"
	"leadAgent/internal/database"
	"leadAgent/internal/discovery"
	"leadAgent/internal/dm"
	"leadAgent/internal/inbox"
	"leadAgent/internal/llm"
	"leadAgent/internal/logger"
	"leadAgent/internal/migrations"
	"leadAgent/internal/openclaw"
	"leadAgent/internal/resolver"
	"leadAgent/internal/server"

	"go.uber.org/zap"
)

// driver — общий контракт двух реализаций автоматизации:
// CLI-инструмент (основной) и локальный playwright (fallback).
type driver interface {
	openclaw.Driver
	Available() bool
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.Logger.Env, cfg.Logger.Level)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if err := migrations.Run(cfg, log); err != nil {
		log.Fatal("Ошибка миграций", zap.Error(err))
	}

	db, err := database.New(cfg, log)
	if err != nil {
		log.Fatal("Ошибка подключения к БД", zap.Error(err))
	}
	defer db.Close(log)

	campaignRepo := database.NewCampaignRepository(db.DB)
	leadRepo := database.NewLeadRepository(db.DB)
	accountRepo := database.NewAccountRepository(db.DB)

	var analyzer llm.Analyzer
	if cfg.OpenAI.KeyAI != "" {
		analyzer = llm.NewClient(cfg.OpenAI.KeyAI, cfg.OpenAI.Model, campaignRepo)
	} else {
		log.Warn("OPENAI_API_KEY не задан: оценка профилей и черновики недоступны")
	}

	var drv driver = openclaw.NewClient(cfg.OpenClaw, log)
	if !drv.Available() {
		log.Warn("OpenClaw не настроен, используется локальный playwright")
		drv = browser.New(cfg.Browser, cfg.OpenClaw.UploadDir, log)
	}

	// Лексика resolver-а переопределяется из конфигурации: при дрейфе
	// UI словарь правится без пересборки.
	keywords := resolver.DefaultKeywords()
	if len(cfg.Dm.SendKeywords) > 0 {
		keywords.Send = resolver.KeywordPattern(cfg.Dm.SendKeywords)
	}
	if len(cfg.Dm.AttachKeywords) > 0 {
		keywords.Attach = resolver.KeywordPattern(cfg.Dm.AttachKeywords)
	}
	if len(cfg.Dm.MessageKeywords) > 0 {
		keywords.MessageButton = resolver.KeywordPattern(cfg.Dm.MessageKeywords)
	}
	table := resolver.BuildTable(cfg.Dm.HeaderLines, cfg.Dm.TailLines, keywords)
	accountManager := accounts.NewManager(accountRepo, log, 0)

	machine := dm.NewMachine(drv, table, log, cfg.Dm, cfg.OpenClaw.DebugSnapshot)
	dmService := dm.NewService(machine, drv, accountManager, leadRepo, campaignRepo, log, cfg.Dm)

	scanner := discovery.NewScanner(drv, drv, log, cfg.Discovery)
	runner := discovery.NewRunner(scanner, analyzer, leadRepo, campaignRepo, log, cfg.Discovery)

	inboxService := inbox.NewService(drv, drv, leadRepo, accountRepo, analyzer, log)

	ctx := context.Background()

	// REST API для интеграций работает параллельно с консолью.
	srv := server.New(cfg, log, db, accountManager, runner, dmService, inboxService)
	go func() {
		if err := srv.Run(ctx); err != nil {
			log.Error("Сервер остановлен", zap.Error(err))
		}
	}()

	console := cli.New(log, db, accountManager, runner, analyzer, dmService, inboxService)
	console.Run(ctx)
}
