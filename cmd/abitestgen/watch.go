package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/goplus/abitestgen/internal/emit"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func (a *app) watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch <output-file>",
		Short: "Regenerate the conformance test whenever the config, manifest or header changes",
		Args:  requireOutput,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.watch(ctx, cmd, args[0])
		},
	}
}

func (a *app) generate(cmd *cobra.Command, outFile string) (watched map[string]bool, err error) {
	conf, err := a.loadConfig(cmd)
	if err != nil {
		return watchSet(a.cfgFile), err
	}
	watched = watchSet(append([]string{a.cfgFile, conf.Manifest}, conf.Headers...)...)
	m, econf, err := a.prepare(conf)
	if err != nil {
		return watched, err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Writing", outFile)
	return watched, emit.Generate(outFile, m, econf)
}

// watch runs until ctx is done. Generation errors are logged and the
// previous output is left in place.
func (a *app) watch(ctx context.Context, cmd *cobra.Command, outFile string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	dirs := make(map[string]bool)
	var watched map[string]bool
	update := func() {
		var err error
		watched, err = a.generate(cmd, outFile)
		if err != nil {
			a.logger.Error("generate failed", zap.String("output", outFile), zap.Error(err))
		}
		// editors replace files on save, so the directories are watched
		for file := range watched {
			dir := filepath.Dir(file)
			if dirs[dir] {
				continue
			}
			if err := watcher.Add(dir); err != nil {
				a.logger.Warn("cannot watch", zap.String("dir", dir), zap.Error(err))
				continue
			}
			dirs[dir] = true
			a.logger.Debug("watching", zap.String("dir", dir))
		}
	}
	update()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if shouldRegenerate(event, watched) {
				a.logger.Debug("change detected", zap.String("file", event.Name), zap.Stringer("op", event.Op))
				update()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			a.logger.Error("watch error", zap.Error(err))
		}
	}
}

func watchSet(files ...string) map[string]bool {
	ret := make(map[string]bool)
	for _, file := range files {
		if file == "" || file == "-" {
			continue
		}
		if abs, err := filepath.Abs(file); err == nil {
			ret[abs] = true
		}
	}
	return ret
}

func shouldRegenerate(event fsnotify.Event, watched map[string]bool) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return false
	}
	abs, err := filepath.Abs(event.Name)
	if err != nil {
		return false
	}
	return watched[abs]
}
