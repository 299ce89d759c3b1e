package openclaw

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"
)

// DownloadToUploadDir скачивает удаленные изображения в каталог-песочницу
// инструмента и возвращает локальные пути. Файлы временные: вызывающий
// обязан убрать их через RemoveFiles по завершении операции.
func DownloadToUploadDir(ctx context.Context, uploadDir string, urls []string) ([]string, error) {
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("создание каталога загрузок: %w", err)
	}

	client := &http.Client{Timeout: 30 * time.Second}
	paths := make([]string, 0, len(urls))
	for i, raw := range urls {
		p, err := downloadOne(ctx, client, uploadDir, raw, i)
		if err != nil {
			RemoveFiles(paths)
			return nil, fmt.Errorf("скачивание изображения (%d/%d): %w", i+1, len(urls), err)
		}
		paths = append(paths, p)
	}
	return paths, nil
}

func downloadOne(ctx context.Context, client *http.Client, dir, raw string, idx int) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, raw, nil)
	if err != nil {
		return "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	ext := ".jpg"
	if u, err := url.Parse(raw); err == nil {
		if e := path.Ext(u.Path); e != "" {
			ext = e
		}
	}

	dst := filepath.Join(dir, fmt.Sprintf("dm-%d-%d%s", time.Now().UnixMilli(), idx, ext))
	f, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		os.Remove(dst)
		return "", err
	}
	return dst, nil
}

// RemoveFiles удаляет временные файлы, игнорируя отдельные неудачи.
func RemoveFiles(paths []string) {
	for _, p := range paths {
		_ = os.Remove(p)
	}
}
