// Package watch keeps the served index in step with the documents directory.
package watch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"

	"github.com/lexis-ai/cli/internal/index"
)

// DefaultDebounce is how long the directory must stay quiet before a refresh
const DefaultDebounce = 2 * time.Second

// Initializer reloads or rebuilds the index when the cache is stale
type Initializer interface {
	Initialize(ctx context.Context, forceRebuild bool) error
}

// Options configures a Watcher
type Options struct {
	Dir      string
	Debounce time.Duration
	// Schedule is an optional cron spec ("@every 10m", "0 3 * * *") that
	// triggers a refresh even when no filesystem event arrives.
	Schedule string
	// OnRefresh is called after every refresh attempt
	OnRefresh func(trigger string, err error)
	Logger    *log.Logger
}

// Watcher re-runs Initialize whenever the corpus changes. Initialize is
// never forced, so a corrupt cache is reported and left for the operator.
type Watcher struct {
	bot  Initializer
	opts Options
}

// New creates a watcher for bot
func New(bot Initializer, opts Options) *Watcher {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	return &Watcher{bot: bot, opts: opts}
}

// Run blocks until ctx is done
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.opts.Dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.opts.Dir, err)
	}

	scheduled := make(chan struct{}, 1)
	if w.opts.Schedule != "" {
		c := cron.New()
		_, err := c.AddFunc(w.opts.Schedule, func() {
			select {
			case scheduled <- struct{}{}:
			default:
			}
		})
		if err != nil {
			return fmt.Errorf("invalid schedule %q: %w", w.opts.Schedule, err)
		}
		c.Start()
		defer c.Stop()
	}

	w.opts.Logger.Info("watching documents", "dir", w.opts.Dir, "schedule", w.opts.Schedule)

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !relevant(event) {
				continue
			}
			w.opts.Logger.Debug("corpus event", "op", event.Op.String(), "path", event.Name)
			if timer == nil {
				timer = time.NewTimer(w.opts.Debounce)
			} else {
				timer.Reset(w.opts.Debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			w.refresh(ctx, "change")

		case <-scheduled:
			w.refresh(ctx, "schedule")

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.opts.Logger.Warn("watch error", "err", err)
		}
	}
}

func (w *Watcher) refresh(ctx context.Context, trigger string) {
	err := w.bot.Initialize(ctx, false)
	switch {
	case err == nil:
		w.opts.Logger.Info("index refreshed", "trigger", trigger)
	case errors.Is(err, index.ErrCacheCorrupt):
		w.opts.Logger.Error("index cache is corrupt; run `lexis index --rebuild`", "err", err)
	default:
		w.opts.Logger.Warn("index refresh failed", "trigger", trigger, "err", err)
	}
	if w.opts.OnRefresh != nil {
		w.opts.OnRefresh(trigger, err)
	}
}

// relevant drops permission changes and hidden files such as editor swap files
func relevant(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	return !strings.HasPrefix(filepath.Base(event.Name), ".")
}
