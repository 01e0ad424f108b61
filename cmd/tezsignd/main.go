// Command tezsignd is the network signer daemon: it loads configuration
// and key material, starts the watermark store, and serves the signing
// protocol and the read-only admin API until terminated.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v3"

	"github.com/tez-capital/tezsign-core/internal/adminapi"
	"github.com/tez-capital/tezsign-core/internal/config"
	"github.com/tez-capital/tezsign-core/internal/health"
	"github.com/tez-capital/tezsign-core/internal/keyloader"
	"github.com/tez-capital/tezsign-core/internal/keymanager"
	"github.com/tez-capital/tezsign-core/internal/logging"
	"github.com/tez-capital/tezsign-core/internal/protocol"
	"github.com/tez-capital/tezsign-core/internal/signercore"
	"github.com/tez-capital/tezsign-core/internal/watchdog"
	"github.com/tez-capital/tezsign-core/internal/watermark"
)

func main() {
	cmd := &cli.Command{
		Name:  "tezsignd",
		Usage: "network-attached BLS signer daemon",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Usage: "path to tezsignd.toml"},
			&cli.StringFlag{Name: "listen", Usage: "override listen_address"},
		},
		Action: run,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "tezsignd:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return err
	}
	if listen := cmd.String("listen"); listen != "" {
		cfg.ListenAddress = listen
	}

	if cfg.LogFile != "" {
		os.Setenv("TEZSIGN_LOG_FILE", cfg.LogFile)
	}
	if cfg.LogLevel != "" {
		os.Setenv("TEZSIGN_LOG_LEVEL", cfg.LogLevel)
	}
	logger, err := logging.NewFromEnv()
	if err != nil {
		return fmt.Errorf("tezsignd: logging: %w", err)
	}

	loader := keyloader.Static{Path: cfg.KeysFile}
	refs, err := loader.Load()
	if err != nil {
		return fmt.Errorf("tezsignd: load keys: %w", err)
	}
	keys, err := keymanager.New(refs)
	if err != nil {
		return fmt.Errorf("tezsignd: key manager: %w", err)
	}
	logger.Info("keys loaded", slog.Int("count", keys.Len()))

	var backend watermark.Backend
	if cfg.WatermarkDSN != "" {
		backend, err = watermark.NewSQLBackend(cfg.WatermarkDSN)
		if err != nil {
			return fmt.Errorf("tezsignd: watermark sql backend: %w", err)
		}
		logger.Info("watermark backend: sql")
	} else {
		backend, err = watermark.NewFileBackend(cfg.WatermarkDir)
		if err != nil {
			return fmt.Errorf("tezsignd: watermark backend: %w", err)
		}
		logger.Info("watermark backend: file", slog.String("dir", cfg.WatermarkDir))
	}

	var storeOpts []watermark.Option
	if cfg.LargeGapThreshold > 0 {
		storeOpts = append(storeOpts, watermark.WithLargeGapThreshold(cfg.LargeGapThreshold))
	}
	if cfg.WatermarkRedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.WatermarkRedisAddr})
		storeOpts = append(storeOpts, watermark.WithMirror(watermark.NewMirror(client, logger)))
		logger.Info("watermark mirror enabled", slog.String("addr", cfg.WatermarkRedisAddr))
	}
	store, err := watermark.New(backend, storeOpts...)
	if err != nil {
		return fmt.Errorf("tezsignd: watermark store: %w", err)
	}

	monitor := health.NewMonitor(0)
	core := signercore.New(keys, store, nil, logger)
	core.Health = monitor

	handler := &protocol.Handler{Core: core}
	server := protocol.NewServer(handler,
		protocol.WithMaxConnections(cfg.MaxConnections),
		protocol.WithLogger(logger))

	listener, err := net.Listen("tcp", cfg.ListenAddress)
	if err != nil {
		return fmt.Errorf("tezsignd: listen %s: %w", cfg.ListenAddress, err)
	}
	logger.Info("signing protocol listening", slog.String("addr", cfg.ListenAddress))

	runCtx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	serveErrs := make(chan error, 2)
	go func() { serveErrs <- server.Serve(runCtx, listener) }()

	adminApp := adminapi.New(core, monitor)
	go func() {
		if err := adminApp.Listen(cfg.AdminAddress); err != nil {
			serveErrs <- fmt.Errorf("admin api: %w", err)
		}
	}()

	notifier := watchdog.New()
	if err := notifier.Ready(); err != nil {
		logger.Warn("watchdog ready notify failed", slog.Any("err", err))
	}
	stopPinger := notifier.StartPinger(runCtx)
	defer stopPinger()

	select {
	case <-runCtx.Done():
		logger.Info("shutting down")
		_ = notifier.Stopping()
		_ = adminApp.Shutdown()
		return nil
	case err := <-serveErrs:
		return err
	}
}
