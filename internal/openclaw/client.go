package openclaw

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"leadAgent/internal/config"
	"leadAgent/internal/logger"
	"leadAgent/internal/snapshot"
)

// Client выполняет команды `openclaw browser ...` в каталоге проекта
// инструмента. Поколение snapshot ведется отдельно на каждый profile.
type Client struct {
	cfg config.OpenClaw
	log *logger.Zap

	mu          sync.Mutex
	generations map[string]uint64
}

func NewClient(cfg config.OpenClaw, log *logger.Zap) *Client {
	return &Client{
		cfg:         cfg,
		log:         log,
		generations: make(map[string]uint64),
	}
}

// Available сообщает, настроен ли инструмент: без каталога проекта
// ни одна команда не выполнима.
func (c *Client) Available() bool {
	if c.cfg.ProjectRoot == "" {
		return false
	}
	_, err := os.Stat(c.cfg.ProjectRoot)
	return err == nil
}

// ResolveProfile сводит profile из БД к реально существующему в Gateway:
// в записях аккаунтов встречаются profile-1/profile-2, инструмент знает
// только свои.
func (c *Client) ResolveProfile(profile string) string {
	p := strings.TrimSpace(profile)
	for _, known := range c.cfg.KnownProfiles {
		if p == known {
			return p
		}
	}
	if len(c.cfg.KnownProfiles) > 0 {
		return c.cfg.KnownProfiles[0]
	}
	return "openclaw"
}

// run выполняет одну команду инструмента с таймаутом и захватом вывода.
func (c *Client) run(ctx context.Context, timeout time.Duration, profile string, args ...string) (string, error) {
	if !c.Available() {
		return "", fmt.Errorf("openclaw не настроен: задайте OPENCLAW_PROJECT_ROOT или добавьте vendored submodule")
	}

	cmdCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	full := append([]string{"openclaw", "browser", "--browser-profile", c.ResolveProfile(profile)}, args...)
	cmd := exec.CommandContext(cmdCtx, "pnpm", full...)
	cmd.Dir = c.cfg.ProjectRoot

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	c.log.Debug("openclaw",
		zap.String("cmd", strings.Join(args, " ")),
		zap.String("profile", profile),
		zap.Duration("took", time.Since(start)),
		zap.Bool("ok", err == nil),
	)

	if err != nil {
		if cmdCtx.Err() == context.DeadlineExceeded {
			err = fmt.Errorf("таймаут %v: %w", timeout, cmdCtx.Err())
		}
		return "", &CommandError{
			Cmd:    strings.Join(args, " "),
			Stdout: stdout.String(),
			Stderr: stderr.String(),
			Err:    err,
		}
	}
	return stdout.String(), nil
}

// bumpGeneration помечает все выданные ref этого profile устаревшими.
func (c *Client) bumpGeneration(profile string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generations[profile]++
	return c.generations[profile]
}

func (c *Client) currentGeneration(profile string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generations[profile]
}

// checkRef ловит использование ref против чужого поколения snapshot.
func (c *Client) checkRef(ref snapshot.Ref, profile string) error {
	gen := c.currentGeneration(profile)
	if ref.IsZero() || ref.Generation != gen {
		return &StaleRefError{Ref: ref, Profile: profile, Generation: gen}
	}
	return nil
}

// Navigate переходит по URL. Страница меняется целиком, поэтому все прежние
// ref этого profile немедленно устаревают.
func (c *Client) Navigate(ctx context.Context, url, profile string) error {
	_, err := c.run(ctx, c.cfg.NavTimeout, profile, "navigate", url)
	if err == nil {
		c.bumpGeneration(profile)
	}
	return err
}

// Snapshot снимает текущий дамп accessibility-дерева, открывая новое
// поколение ref.
func (c *Client) Snapshot(ctx context.Context, profile string) (snapshot.Snapshot, error) {
	out, err := c.run(ctx, c.cfg.CommandTimeout, profile, "snapshot")
	if err != nil {
		return snapshot.Snapshot{}, err
	}
	return snapshot.New(out, c.bumpGeneration(profile)), nil
}

func (c *Client) Click(ctx context.Context, ref snapshot.Ref, profile string) error {
	if err := c.checkRef(ref, profile); err != nil {
		return err
	}
	_, err := c.run(ctx, c.cfg.CommandTimeout, profile, "click", ref.ID)
	return err
}

func (c *Client) Type(ctx context.Context, ref snapshot.Ref, text, profile string) error {
	if err := c.checkRef(ref, profile); err != nil {
		return err
	}
	_, err := c.run(ctx, c.cfg.CommandTimeout, profile, "type", ref.ID, text)
	return err
}

func (c *Client) PressKey(ctx context.Context, key, profile string) error {
	_, err := c.run(ctx, c.cfg.KeyTimeout, profile, "press", key)
	return err
}

// Upload загружает локальные файлы. Все пути обязаны лежать в каталоге-
// песочнице — это защитное ограничение самого инструмента, проверяем до
// запуска, чтобы ошибка была внятной.
func (c *Client) Upload(ctx context.Context, paths []string, ref snapshot.Ref, profile string, mode UploadMode) error {
	if len(paths) == 0 {
		return nil
	}
	if err := c.checkRef(ref, profile); err != nil {
		return err
	}
	for _, p := range paths {
		if !c.insideUploadDir(p) {
			return fmt.Errorf("файл %q вне каталога загрузок %q: инструмент его отвергнет", p, c.cfg.UploadDir)
		}
	}

	flag := "--ref"
	if mode == UploadViaInput {
		flag = "--input-ref"
	}
	args := append([]string{"upload"}, paths...)
	args = append(args, flag, ref.ID)
	_, err := c.run(ctx, c.cfg.NavTimeout, profile, args...)
	return err
}

func (c *Client) UploadDir() string {
	return c.cfg.UploadDir
}

func (c *Client) insideUploadDir(path string) bool {
	rel, err := filepath.Rel(c.cfg.UploadDir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
