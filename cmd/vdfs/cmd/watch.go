package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ZanzyTHEbar/virtual-docfs/vdfs/metrics"
	"github.com/ZanzyTHEbar/virtual-docfs/vdfs/watcher"

	"github.com/spf13/cobra"
)

func newWatchCmd(a *app) *cobra.Command {
	var metricsAddr string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Rebuild mounts when their documentation folders change",
		Long: `Watch every mount's documentation folder and rebuild the mount after
changes settle. Rebuilds are wholesale and run one at a time.

Example:
  vdfs watch --metrics-addr :9090`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := a.mounts()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if metricsAddr == "" {
				metricsAddr = a.cfg.Metrics.Addr
			}
			if metricsAddr != "" {
				shutdown := serveMetrics(metricsAddr, a)
				defer shutdown()
			}

			w, err := watcher.New(watcher.Config{
				DebounceDelay:    a.cfg.Watcher.DebounceDelay,
				MaxDebounceDelay: a.cfg.Watcher.MaxDebounceDelay,
			},
				watcher.WithLogger(a.logger),
				watcher.WithEventHook(func(watcher.Event) { metrics.RecordWatchEvent() }),
			)
			if err != nil {
				return err
			}
			defer w.Close()

			watched := 0
			for _, mc := range a.cfg.Mounts {
				m, ok := registry.Get(mc.Name)
				if !ok {
					continue
				}
				filter := watcher.ExtensionFilter([]string{m.Index().Extension()}, mc.IgnoreFile)
				if err := w.Watch(m.Name(), m.DiskRoot(), filter); err != nil {
					a.logger.Warn().Err(err).Str("mount", m.Name()).Msg("not watching mount")
					continue
				}
				watched++
			}
			if watched == 0 {
				return errors.New("no documentation folder could be watched")
			}
			w.Start(ctx)
			a.logger.Info().Int("mounts", watched).Msg("watching documentation")

			out := cmd.OutOrStdout()
			for {
				select {
				case <-ctx.Done():
					return nil
				case batch, ok := <-w.Batches():
					if !ok {
						return nil
					}
					m, ok := registry.Get(batch.Key)
					if !ok {
						continue
					}
					stats := m.Refresh()
					fmt.Fprintf(out, "%s rebuilt after %d changes: folders=%d documents=%d took=%s\n",
						m.Name(), len(batch.Events), stats.Folders, stats.Documents, stats.BuildTime)
				case err, ok := <-w.Errors():
					if ok {
						a.logger.Warn().Err(err).Msg("watcher error")
					}
				}
			}
		},
	}
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address")
	return cmd
}

// serveMetrics exposes /metrics until the returned function is called.
func serveMetrics(addr string, a *app) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error().Err(err).Str("addr", addr).Msg("metrics server failed")
		}
	}()
	a.logger.Info().Str("addr", addr).Msg("serving metrics")

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
