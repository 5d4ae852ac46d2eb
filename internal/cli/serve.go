package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/SmitUplenchwar2687/radarplay/internal/clock"
	"github.com/SmitUplenchwar2687/radarplay/internal/library"
	"github.com/SmitUplenchwar2687/radarplay/internal/server"
	"github.com/SmitUplenchwar2687/radarplay/internal/session"
	"github.com/SmitUplenchwar2687/radarplay/internal/stream"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd() *cobra.Command {
	var (
		opts     runtimeOptions
		load     string
		autoplay bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the playback server",
		Long: `Starts an HTTP server that plays recordings from the library directory.

Endpoints:
  GET    /                          Server info
  GET    /health                    Health check
  GET    /dashboard                 Control page
  GET    /api/recordings            List the library
  POST   /api/recordings?name=F     Upload a recording
  DELETE /api/recordings/{name}     Delete a recording
  POST   /api/recordings/{name}/load  Decode and load a recording
  POST   /api/play|pause|stop       Playback controls
  POST   /api/seek?position_ms=N    Seek
  GET    /api/status                Playback status
  GET    /api/settings              Looping setting (PUT to change)
  WS     /ws/{stream}               Spoke and state streams
  GET    /metrics                   Prometheus metrics`,
		Example: `  radarplay serve
  radarplay serve --addr :9090 --dir ./recordings --loop
  radarplay serve --load harbour.mrr.gz --autoplay
  radarplay serve --config radarplay.yaml --redis --redis-addr redis:6379`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.resolve(cmd)
			if err != nil {
				return err
			}
			logger, err := newLogger(cmd, cfg)
			if err != nil {
				return err
			}

			lib, err := library.Open(cfg.Library.Dir)
			if err != nil {
				return err
			}
			if err := lib.Lock(); err != nil {
				return err
			}
			defer lib.Unlock()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			bus, err := openBus(ctx, cfg)
			if err != nil {
				return err
			}

			hub := stream.NewHub(logger)
			publishers := session.Fanout{hub}
			var registry session.Registry = session.NopRegistry
			if bus != nil {
				defer bus.Close()
				// Its own queue, so a slow redis can't hold up websocket viewers.
				mirror := session.NewPublishQueue(bus, session.QueueOptions{Logger: logger})
				defer mirror.Close()
				publishers = append(publishers, mirror)
				registry = bus
			}

			clk := clock.NewRealClock()
			sessions := session.NewManager(session.Options{
				Clock:     clk,
				Registry:  registry,
				Publisher: publishers,
				Playback:  playbackOptions(cfg, logger),
				Looping:   cfg.Playback.Looping,
				Logger:    logger,
			})

			if load != "" {
				data, err := lib.Read(load)
				if err != nil {
					return err
				}
				if _, err := sessions.Load(ctx, load, data); err != nil {
					return fmt.Errorf("loading %s: %w", load, err)
				}
				if autoplay {
					if err := sessions.Play(); err != nil {
						return err
					}
				}
			}

			srv := server.New(server.Options{
				Addr:           cfg.Server.Addr,
				Sessions:       sessions,
				Library:        lib,
				Hub:            hub,
				Clock:          clk,
				MaxUploadBytes: cfg.Library.MaxUploadBytes,
				Logger:         logger,
			})

			logger.Debug("library opened", "dir", lib.Dir(), "redis", cfg.Redis.Enabled)
			fmt.Fprintf(cmd.OutOrStdout(), "Dashboard: http://localhost%s/dashboard\n", cfg.Server.Addr)
			fmt.Fprintf(cmd.OutOrStdout(), "Streams:   ws://localhost%s/ws/{id}.spokes\n", cfg.Server.Addr)

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.Start()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					err = nil
				}
				sessions.Close(context.Background())
				return err
			case <-ctx.Done():
				logger.Info("shutting down")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				if err := sessions.Close(shutdownCtx); err != nil {
					logger.Warn("closing session", "error", err)
				}
				return srv.Shutdown(shutdownCtx)
			}
		},
	}

	opts.addConfigFlags(cmd)
	opts.addLibraryFlags(cmd)
	opts.addPlaybackFlags(cmd)
	opts.addRedisFlags(cmd)
	cmd.Flags().StringVar(&opts.addr, "addr", ":8080", "address to listen on")
	cmd.Flags().StringVar(&load, "load", "", "recording in the library to load at startup")
	cmd.Flags().BoolVar(&autoplay, "autoplay", false, "start playing the --load recording immediately")

	return cmd
}
