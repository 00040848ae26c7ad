package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/arloliu/tickwire/capture"
	"github.com/arloliu/tickwire/format"
	"github.com/arloliu/tickwire/internal/logging"
	"github.com/arloliu/tickwire/request"
	"github.com/arloliu/tickwire/stream"
	"github.com/arloliu/tickwire/transport"
)

func queryCommand() *cli.Command {
	return &cli.Command{
		Name:      "query",
		Usage:     "Send a query to a LispTick server and print the decoded result",
		ArgsUsage: "[code]",
		Flags: []cli.Flag{
			configFlag,
			formatFlag,
			compressionFlag,
			maxDecodedFlag,
			logLevelFlag,
			&cli.StringFlag{Name: "host", Usage: "Server host (default from config)"},
			&cli.IntFlag{Name: "port", Usage: "Server port (default from config)"},
			&cli.BoolFlag{Name: "secure", Usage: "Use wss"},
			&cli.StringFlag{Name: "url", Usage: "Full websocket URL, overrides host, port and secure"},
			&cli.DurationFlag{Name: "timeout", Usage: "Query timeout, 0 for none (default from config)"},
			&cli.StringFlag{Name: "capture", Usage: "Record the received chunks to this capture file"},
			&cli.StringFlag{Name: "metrics-addr", Usage: "Serve Prometheus metrics on this address while the query runs"},
		},
		Action: queryAction,
	}
}

func queryAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if c.IsSet("host") {
		cfg.Server.Host = c.String("host")
	}
	if c.IsSet("port") {
		cfg.Server.Port = c.Int("port")
	}
	if c.IsSet("secure") {
		cfg.Server.Secure = c.Bool("secure")
	}
	if c.IsSet("timeout") {
		cfg.Server.Timeout.Duration = c.Duration("timeout")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	outFormat, err := parseFormat(c.String(formatFlag.Name))
	if err != nil {
		return err
	}

	code := c.Args().First()
	if code == "" {
		code = request.DefaultCode
	}

	logger, err := logging.New(cfg.Log.Level, c.App.ErrWriter)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if cfg.Server.Timeout.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Server.Timeout.Duration)
		defer cancel()
	}

	registry := prometheus.NewRegistry()
	metrics, err := stream.NewMetrics(registry)
	if err != nil {
		return err
	}
	if addr := c.String("metrics-addr"); addr != "" {
		srv := serveMetrics(addr, registry, logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	connOpts := []transport.Option{transport.WithLogger(logger)}

	var recorder *capture.Writer
	if path := c.String("capture"); path != "" {
		ct, _ := format.ParseCompression(cfg.Capture.Compression)
		file, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create capture: %w", err)
		}
		defer file.Close()

		recorder, err = capture.NewWriter(file, capture.WithCompression(ct))
		if err != nil {
			return err
		}
		connOpts = append(connOpts, transport.WithRecorder(recorder))
	}

	var conn *transport.Conn
	if url := c.String("url"); url != "" {
		conn, err = transport.DialURL(ctx, url, connOpts...)
	} else {
		conn, err = transport.Dial(ctx, cfg.Transport(), connOpts...)
	}
	if err != nil {
		return err
	}
	defer conn.Close()

	ctrl, err := stream.New(append(cfg.StreamOptions(),
		stream.WithLogger(logger),
		stream.WithMetrics(metrics),
		stream.WithCloser(conn),
	)...)
	if err != nil {
		return err
	}

	logger.Info("sending query", zap.String("session", ctrl.SessionID().String()), zap.Int("code_bytes", len(code)))
	if err := conn.Send(code); err != nil {
		return err
	}

	runErr := conn.Run(ctx, ctrl)

	if recorder != nil {
		if err := recorder.Close(); err != nil {
			logger.Warn("capture not written", zap.Error(err))
		} else {
			logger.Info("capture written", zap.String("path", c.String("capture")), zap.Int("chunks", recorder.Chunks()))
		}
	}

	if err := render(c.App.Writer, outFormat, ctrl.Snapshot()); err != nil {
		return err
	}

	if runErr == nil {
		runErr = ctrl.Err()
	}
	if errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded) {
		return cli.Exit(runErr.Error(), exitFailure)
	}

	return exitError(runErr)
}

func serveMetrics(addr string, registry *prometheus.Registry, logger *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server stopped", zap.Error(err))
		}
	}()

	return srv
}
