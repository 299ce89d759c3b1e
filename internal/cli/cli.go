// Package cli — интерактивная консоль оператора: кампании, черновики,
// отправка DM, проверка входящих и ротация аккаунтов.
package cli

import (
	"bufio"
	"context"
	"io"
	"os"
	"strings"

	"leadAgent/internal/accounts"
	"leadAgent/internal/cli/commands"
	"leadAgent/internal/cli/ui"
	"leadAgent/internal/database"
	"leadAgent/internal/discovery"
	"leadAgent/internal/dm"
	"leadAgent/internal/inbox"
	"leadAgent/internal/llm"
	"leadAgent/internal/logger"

	"github.com/chzyer/readline"
)

type CLI struct {
	log *logger.Zap
	rl  *readline.Instance

	campaignHandler *commands.CampaignHandler
	dmHandler       *commands.DmHandler
	inboxHandler    *commands.InboxHandler
	accountsHandler *commands.AccountsHandler
}

func New(log *logger.Zap, db *database.Database, acc *accounts.Manager, runner *discovery.Runner, analyzer llm.Analyzer, dmService *dm.Service, inboxService *inbox.Service) *CLI {
	campaignRepo := database.NewCampaignRepository(db.DB)
	leadRepo := database.NewLeadRepository(db.DB)

	cli := &CLI{log: log}

	// Инициализация handlers
	cli.campaignHandler = commands.NewCampaignHandler(campaignRepo, leadRepo, runner, log.Logger)
	cli.dmHandler = commands.NewDmHandler(leadRepo, campaignRepo, analyzer, dmService, log.Logger)
	cli.inboxHandler = commands.NewInboxHandler(inboxService, log.Logger)
	cli.accountsHandler = commands.NewAccountsHandler(acc, log.Logger)

	// Инициализация readline
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "> ",
		HistoryFile:     ".lead-agent-history",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		log.Warn("Не удалось инициализировать readline, будет использован fallback режим")
	} else {
		cli.rl = rl
	}

	return cli
}

func (c *CLI) readLine() (string, error) {
	if c.rl != nil {
		return c.rl.Readline()
	}
	// Fallback для работы без readline
	reader := bufio.NewReader(os.Stdin)
	println(ui.ColorCyan + "> " + ui.ColorReset)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (c *CLI) closeReadline() {
	if c.rl != nil {
		c.rl.Close()
	}
}

func (c *CLI) Run(ctx context.Context) {
	ui.PrintWelcome()
	defer c.closeReadline()

	for {
		// Проверка отмены контекста
		select {
		case <-ctx.Done():
			println("\n" + ui.ColorCyan + ui.IconWave + " Получен сигнал завершения..." + ui.ColorReset)
			return
		default:
		}

		line, err := c.readLine()
		if err == readline.ErrInterrupt {
			if len(line) == 0 {
				break
			} else {
				continue
			}
		} else if err == io.EOF {
			break
		}

		line = strings.TrimSpace(line)

		if line == "" {
			continue
		}

		c.handleCommand(ctx, line)
	}
}

func (c *CLI) handleCommand(ctx context.Context, line string) {
	switch {
	case line == "exit":
		println(ui.ColorCyan + ui.IconWave + " До свидания!" + ui.ColorReset)
		os.Exit(0)

	case line == "clear":
		ui.ClearScreen()

	case line == "campaigns":
		c.campaignHandler.List()

	case strings.HasPrefix(line, "run "):
		args := strings.Fields(strings.TrimPrefix(line, "run "))
		profile := ""
		if len(args) > 1 {
			profile = args[1]
		}
		if len(args) > 0 {
			c.campaignHandler.Run(ctx, args[0], profile)
		}

	case strings.HasPrefix(line, "leads "):
		c.campaignHandler.Leads(strings.TrimPrefix(line, "leads "))

	case strings.HasPrefix(line, "draft "):
		c.dmHandler.Draft(ctx, strings.TrimPrefix(line, "draft "))

	case strings.HasPrefix(line, "approve "):
		c.dmHandler.Approve(strings.TrimPrefix(line, "approve "))

	case strings.HasPrefix(line, "compose "):
		args := strings.SplitN(strings.TrimPrefix(line, "compose "), " ", 2)
		if len(args) < 2 {
			ui.PrintHelp()
			return
		}
		c.dmHandler.Compose(args[0], args[1])

	case strings.HasPrefix(line, "send-text "):
		c.dmHandler.Send(ctx, strings.TrimPrefix(line, "send-text "), true)

	case strings.HasPrefix(line, "send "):
		c.dmHandler.Send(ctx, strings.TrimPrefix(line, "send "), false)

	case line == "inbox":
		c.inboxHandler.CheckAll(ctx)

	case line == "accounts":
		c.accountsHandler.Overview()

	case line == "activity":
		c.campaignHandler.Activity()

	default:
		ui.PrintHelp()
	}
}
