package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/MiguelMedeiros/zapin.me/internal/analytics"
	"github.com/MiguelMedeiros/zapin.me/internal/backend"
	"github.com/MiguelMedeiros/zapin.me/internal/channel"
	"github.com/MiguelMedeiros/zapin.me/internal/config"
	"github.com/MiguelMedeiros/zapin.me/internal/engine"
	"github.com/MiguelMedeiros/zapin.me/internal/http_api"
	"github.com/MiguelMedeiros/zapin.me/internal/wallet"
	"github.com/MiguelMedeiros/zapin.me/pkg/logger"
)

func main() {
	app := &cli.App{
		Name:  "zapinme",
		Usage: "zapin.me is a live map of Lightning-paid pins; this agent keeps a synchronized local view of it",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "backend-url", Aliases: []string{"b"}, Usage: "Backend API URL"},
			&cli.StringFlag{Name: "socket-url", Aliases: []string{"s"}, Usage: "Push channel websocket URL"},
			&cli.IntFlag{Name: "api-port", Aliases: []string{"p"}, Usage: "Local API port"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Usage: "Page size for marker listing"},
			&cli.StringFlag{Name: "wallet-url", Aliases: []string{"w"}, Usage: "Wallet API URL"},
			&cli.StringFlag{Name: "wallet-api-key", Aliases: []string{"k"}, Usage: "Wallet API key"},
			&cli.StringFlag{Name: "analytics-url", Aliases: []string{"a"}, Usage: "Analytics sink URL"},
			&cli.Int64Flag{Name: "pin", Usage: "Marker id to select on startup (deep link)"},
			&cli.BoolFlag{Name: "development", Aliases: []string{"D"}, Usage: "Development mode"},
		},
		Action: func(c *cli.Context) error {
			return run(c)
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatal(err)
	}
}

func run(c *cli.Context) error {
	// Load configuration from environment variables
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %v", err)
	}

	// Override with flags if set
	if c.IsSet("backend-url") {
		cfg.BackendURL = c.String("backend-url")
	}
	if c.IsSet("socket-url") {
		cfg.SocketURL = c.String("socket-url")
	}
	if c.IsSet("api-port") {
		cfg.APIPort = c.Int("api-port")
	}
	if c.IsSet("limit") {
		cfg.PageSize = c.Int("limit")
	}
	if c.IsSet("wallet-url") {
		cfg.WalletURL = c.String("wallet-url")
	}
	if c.IsSet("wallet-api-key") {
		cfg.WalletAPIKey = c.String("wallet-api-key")
	}
	if c.IsSet("analytics-url") {
		cfg.AnalyticsURL = c.String("analytics-url")
	}
	if c.IsSet("pin") {
		cfg.DeepLinkPin = c.Int64("pin")
	}
	if c.IsSet("development") {
		cfg.Development = c.Bool("development")
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Development)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %v", err)
	}
	defer func() { _ = log.Sync() }()

	// Initialize services
	backendClient := backend.NewClient(cfg.BackendURL)
	walletClient := wallet.NewHTTPWallet(cfg.WalletURL, cfg.WalletAPIKey, log)
	collector := analytics.NewCollector(cfg.AnalyticsURL, log)

	if !walletClient.Available() {
		log.Warn("No wallet configured; invoices must be paid through another channel")
	}

	// Create the engine
	eng := engine.New(backendClient, walletClient, collector, log, engine.Options{
		PageSize:      cfg.PageSize,
		DefaultAmount: cfg.DefaultAmount,
		DeepLinkPin:   cfg.DeepLinkPin,
	})

	// Push channel feeds the engine
	manager := channel.NewManager(cfg.SocketURL, eng, log)

	apiServer := http_api.NewHTTPServer(eng, cfg.APIPort, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go apiServer.Start()
	manager.Connect(ctx)

	// Run the dispatcher until shutdown
	eng.Run(ctx)

	manager.Close()
	if err := apiServer.Shutdown(); err != nil {
		log.Error("Failed to shut down API server ", "error ", err)
	}

	return nil
}
