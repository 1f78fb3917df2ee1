package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"brokerdesk/internal/broker"
	"brokerdesk/internal/config"
	"brokerdesk/internal/httpapi"
	"brokerdesk/internal/rpc"
	"brokerdesk/internal/trading"
	"brokerdesk/internal/util"
)

func main() {
	_ = godotenv.Load()

	if err := newApp(start).Run(os.Args); err != nil {
		log.Fatalf("brokerdesk-server: %v", err)
	}
}

// startFunc runs the server for a fully loaded configuration.
type startFunc func(cfg *config.Config) error

func newApp(run startFunc) *cli.App {
	return &cli.App{
		Name:  "brokerdesk-server",
		Usage: "serve account, position and order operations over HTTP and gRPC",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				EnvVars: []string{config.EnvConfigPath},
				Usage:   "YAML config file",
			},
			&cli.StringFlag{Name: "host", Usage: "listen host"},
			&cli.IntFlag{Name: "port", Usage: "HTTP port"},
			&cli.IntFlag{Name: "grpc-port", Usage: "gRPC port"},
			&cli.StringFlag{Name: "static-dir", Usage: "directory served at /"},
			&cli.StringFlag{Name: "provider", Usage: "provider backend (alpaca, simulator)"},
			&cli.StringFlag{Name: "log-level", Usage: "log level (debug, info, warn, error)"},
			&cli.StringFlag{Name: "log-format", Usage: "log format (json, text)"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := config.Load(c.String("config"))
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			applyFlags(c, cfg)
			return run(cfg)
		},
	}
}

// applyFlags overrides cfg with the flags given on the command line.
func applyFlags(c *cli.Context, cfg *config.Config) {
	if c.IsSet("host") {
		cfg.Server.Host = c.String("host")
	}
	if c.IsSet("port") {
		cfg.Server.Port = c.Int("port")
	}
	if c.IsSet("grpc-port") {
		cfg.Server.GRPCPort = c.Int("grpc-port")
	}
	if c.IsSet("static-dir") {
		cfg.Server.StaticDir = c.String("static-dir")
	}
	if c.IsSet("provider") {
		cfg.Provider.Name = c.String("provider")
	}
	if c.IsSet("log-level") {
		cfg.Logging.Level = c.String("log-level")
	}
	if c.IsSet("log-format") {
		cfg.Logging.Format = c.String("log-format")
	}
}

func start(cfg *config.Config) error {
	// Setup logging.
	logger := util.NewLogger(cfg.Logging, os.Stdout)
	util.SetDefault(logger)

	creds, err := cfg.Alpaca.Resolve()
	if err != nil {
		return err
	}
	sess, err := broker.OpenProvider(cfg.Provider, creds)
	if err != nil {
		return err
	}
	logger.Info("provider session ready", "provider", sess.Name(), "endpoint", sess.Endpoint(), "credentials", creds.String())

	svc := trading.NewService(sess, logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return serve(ctx, cfg.Server, svc, logger)
}

// serve runs the HTTP and gRPC listeners until ctx is cancelled or either
// listener fails.
func serve(ctx context.Context, cfg config.Server, svc *trading.Service, logger *slog.Logger) error {
	httpServer := &http.Server{
		Addr:              net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Handler:           httpapi.NewServer(svc, logger, cfg.StaticDir).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	grpcServer := grpc.NewServer(grpc.UnaryInterceptor(rpc.LoggingInterceptor(logger)))
	rpc.NewServer(svc, logger).RegisterGRPC(grpcServer)

	grpcAddr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.GRPCPort))
	lis, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", grpcAddr, err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("HTTP server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		logger.Info("gRPC server listening", "addr", grpcAddr)
		if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("gRPC server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()

		grpcServer.GracefulStop()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown error", "error", err)
		}
		return nil
	})

	return g.Wait()
}
