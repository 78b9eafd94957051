package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// watchFiles 监听 paths 所在的目录，某个文件被写入或重新创建时以其路径调用 fn，直到 ctx 结束。
// fn 的错误只记录日志，不会重试。
func watchFiles(ctx context.Context, paths []string, log *slog.Logger, fn func(path string) error) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("创建文件监听失败: %w", err)
	}
	defer w.Close()

	targets := make(map[string]string, len(paths))
	dirs := map[string]bool{}
	for _, p := range paths {
		clean := filepath.Clean(p)
		targets[clean] = p
		dir := filepath.Dir(clean)
		if dirs[dir] {
			continue
		}
		if err := w.Add(dir); err != nil {
			return fmt.Errorf("监听 %s 失败: %w", dir, err)
		}
		dirs[dir] = true
	}
	log.Info("watching", "files", len(targets), "dirs", len(dirs))

	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn("watch error", "err", err)
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			path, ok := changed(ev, targets)
			if !ok {
				continue
			}
			log.Debug("file changed", "path", ev.Name, "op", ev.Op.String())
			if err := fn(path); err != nil {
				log.Error("render failed", "err", err)
			}
		}
	}
}

// changed 判断事件是否表示某个被监听文件的内容有了新版本，返回该文件的原始路径。
func changed(ev fsnotify.Event, targets map[string]string) (string, bool) {
	if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return "", false
	}
	path, ok := targets[filepath.Clean(ev.Name)]
	return path, ok
}
