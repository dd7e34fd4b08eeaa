package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	flag "github.com/spf13/pflag"

	"github.com/icef/go-tex2pdf"
	"github.com/icef/go-tex2pdf/internal/logfields"
)

// ErrWatch is returned when the filesystem watcher cannot be set up.
var ErrWatch = errors.New("failed to watch input")

// buildArtifacts are files the compiler or the CLI writes next to sources.
// Changes to them never trigger a rebuild.
var buildArtifacts = []string{".pdf", ".log", ".aux", ".out", ".toc", ".lof", ".lot", ".fls", ".fdb_latexmk", ".synctex.gz"}

// runWatchCmd parses flags and runs the watch command.
func runWatchCmd(ctx context.Context, args []string, env *Environment) error {
	flags, positional, err := parseWatchFlags(args)
	if errors.Is(err, flag.ErrHelp) {
		printWatchUsage(env.Stdout)
		return nil
	}
	if err != nil {
		return err
	}
	return runWatch(ctx, positional, flags, env)
}

// runWatch converts the input once, then again after every settled change
// below the watched directory, until ctx is canceled.
func runWatch(ctx context.Context, positionalArgs []string, flags *watchFlags, env *Environment) error {
	if err := validateWorkers(flags.workers); err != nil {
		return err
	}

	s, err := loadSettings(&flags.convertFlags, env)
	if err != nil {
		return err
	}

	inputPath, err := resolveInputPath(positionalArgs, s.cfg)
	if err != nil {
		return err
	}
	root, err := watchRoot(inputPath)
	if err != nil {
		return err
	}
	outputDir := resolveOutputDir(flags.output, s.cfg)

	pool := tex2pdf.NewPool(tex2pdf.ResolvePoolSize(s.cfg.Workers))
	gen, err := newGenerator(s, nil, pool)
	if err != nil {
		return err
	}
	report := reportOptionsFor(&flags.convertFlags, s.cfg, gen)

	rebuild := func() {
		files, err := discoverFiles(inputPath, outputDir)
		if err != nil {
			fmt.Fprintf(env.Stderr, "discovering files: %v\n", err)
			return
		}
		if len(files) == 0 {
			fmt.Fprintf(env.Stderr, "%v in %s\n", ErrNoSources, inputPath)
			return
		}
		results := convertBatch(ctx, gen, files, batchOptions{workers: pool.Size()})
		if ctx.Err() != nil {
			return
		}
		printResultsWithWriter(results, report, env)
	}

	watcher, err := setupFileWatcher(root, s.logger)
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	rebuildReq, trigger := setupRebuildDebouncer(flags.debounce)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		runRebuildWorker(ctx, rebuildReq, rebuild)
	}()

	if !flags.common.quiet {
		fmt.Fprintf(env.Stderr, "Watching %s (Ctrl+C to stop)\n", root)
	}
	// Initial build.
	rebuildReq <- struct{}{}

	runWatchLoop(ctx, watcher, trigger, s.logger)
	wg.Wait()
	return nil
}

// watchRoot returns the directory to watch for inputPath. A single file is
// watched through its parent so editors that save by rename are seen.
func watchRoot(inputPath string) (string, error) {
	info, err := os.Stat(inputPath)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrWatch, err)
	}
	root := inputPath
	if !info.IsDir() {
		if err := validateTeXExtension(inputPath); err != nil {
			return "", err
		}
		root = filepath.Dir(inputPath)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrWatch, err)
	}
	return abs, nil
}

// setupFileWatcher creates a watcher on root and every directory below it.
func setupFileWatcher(root string, logger *slog.Logger) (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWatch, err)
	}
	if err := watcher.Add(root); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("%w: %w", ErrWatch, err)
	}
	addDirsRecursive(watcher, root, logger)
	return watcher, nil
}

// setupRebuildDebouncer returns a rebuild channel and a trigger. Triggers
// closer together than wait collapse into one request.
func setupRebuildDebouncer(wait time.Duration) (chan struct{}, func()) {
	var mu sync.Mutex
	var timer *time.Timer
	rebuildReq := make(chan struct{}, 1)

	trigger := func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(wait, func() {
			select {
			case rebuildReq <- struct{}{}:
			default:
			}
		})
	}

	return rebuildReq, trigger
}

// runRebuildWorker runs rebuild for each request until ctx is canceled.
// Requests arriving during a rebuild are coalesced by the channel buffer.
func runRebuildWorker(ctx context.Context, rebuildReq <-chan struct{}, rebuild func()) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-rebuildReq:
			if ctx.Err() != nil {
				return
			}
			rebuild()
		}
	}
}

// runWatchLoop forwards relevant filesystem events to trigger.
func runWatchLoop(ctx context.Context, watcher *fsnotify.Watcher, trigger func(), logger *slog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			handleFileEvent(watcher, ev, trigger, logger)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("watcher error", logfields.Error(err))
		}
	}
}

// handleFileEvent triggers a rebuild for relevant events and starts
// watching newly created directories.
func handleFileEvent(watcher *fsnotify.Watcher, ev fsnotify.Event, trigger func(), logger *slog.Logger) {
	if shouldIgnoreEvent(ev.Name) {
		return
	}
	if ev.Has(fsnotify.Chmod) && !ev.Has(fsnotify.Write) {
		return
	}
	if ev.Has(fsnotify.Create) {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			addDirsRecursive(watcher, ev.Name, logger)
		}
	}
	logger.Debug("file change detected", logfields.Input(ev.Name), slog.String("op", ev.Op.String()))
	trigger()
}

// addDirsRecursive watches every non-hidden directory below root.
func addDirsRecursive(w *fsnotify.Watcher, root string, logger *slog.Logger) {
	_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || !d.IsDir() || path == root {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := w.Add(path); err != nil {
			logger.Warn("watch add failed", slog.String("dir", path), logfields.Error(err))
		}
		return nil
	})
}

// shouldIgnoreEvent reports whether a change to path must not trigger a
// rebuild: hidden files, editor swap files and build artifacts.
func shouldIgnoreEvent(path string) bool {
	base := filepath.Base(path)

	// Hidden files, including Emacs lock files (.#name)
	if strings.HasPrefix(base, ".") {
		return true
	}

	// Editor temp and swap files
	if strings.HasSuffix(base, "~") ||
		strings.HasSuffix(base, ".swp") ||
		strings.HasSuffix(base, ".swx") ||
		strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#") {
		return true
	}

	if base == "Thumbs.db" || base == "4913" { // 4913: vim write probe
		return true
	}

	lower := strings.ToLower(base)
	for _, ext := range buildArtifacts {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}
