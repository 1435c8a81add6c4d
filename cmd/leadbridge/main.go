package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/outsourcely/leadbridge/internal/agent"
	"github.com/outsourcely/leadbridge/internal/config"
	"github.com/outsourcely/leadbridge/internal/coordinator"
	"github.com/outsourcely/leadbridge/internal/launcher"
	"github.com/outsourcely/leadbridge/internal/pacing"
	"github.com/outsourcely/leadbridge/internal/page"
	"github.com/outsourcely/leadbridge/internal/rpc"
	"github.com/outsourcely/leadbridge/internal/schedule"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(0)
	}

	switch os.Args[1] {
	case "version":
		fmt.Printf("leadbridge v%s\n", version)
	case "init":
		path := config.Path()
		if err := config.CreateFromExample(path); err != nil {
			slog.Error("init failed", "error", err)
			os.Exit(1)
		}
		fmt.Printf("config written to %s\n", path)
	case "serve":
		if err := serve(); err != nil {
			slog.Error("fatal", "error", err)
			os.Exit(1)
		}
	case "agent":
		if err := runAgent(); err != nil {
			slog.Error("fatal", "error", err)
			os.Exit(1)
		}
	case "campaign":
		if err := runCampaign(); err != nil {
			slog.Error("fatal", "error", err)
			os.Exit(1)
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("leadbridge - cross-context automation bridge")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  leadbridge serve     Start the coordinator (relay) server")
	fmt.Println("  leadbridge agent     Start the automation agent")
	fmt.Println("  leadbridge campaign  Open the interactive batch console")
	fmt.Println("  leadbridge init      Write a starter config file")
	fmt.Println("  leadbridge version   Show version info")
}

func loadConfig() *config.Config {
	cfgPath := config.Path()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Warn("config not found, using defaults", "path", cfgPath, "error", err)
		cfg = config.DefaultConfig()
	}
	config.Set(cfg)
	return cfg
}

func serve() error {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))
	slog.Info("leadbridge starting", "version", version)

	cfg := loadConfig()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutdown signal received", "signal", sig)
		cancel()
	}()

	go config.Watch(ctx)

	selfWS := fmt.Sprintf("ws://localhost:%d/ws", cfg.Coordinator.Port)
	selfHealth := fmt.Sprintf("http://localhost:%d/health", cfg.Coordinator.Port)

	if cfg.Launcher.Enabled {
		mgr := launcher.NewManager(selfWS, cfg.Coordinator.Auth.Token)
		// Give the listener a moment before the agent dials in.
		time.AfterFunc(time.Second, func() { mgr.Start(ctx, cfg.Launcher.Command) })
		defer mgr.Stop()
	}

	if cfg.Probe.Cron != "" {
		go startProbe(ctx, cfg, selfWS, selfHealth)
	}

	srv := coordinator.NewServer(cfg)
	config.RegisterOnReload(srv.ApplyConfig)
	return srv.Start(ctx)
}

// startProbe attaches a client to our own relay and schedules the recurring
// session check. Dialing retries while the listener comes up.
func startProbe(ctx context.Context, cfg *config.Config, wsURL, healthURL string) {
	var transport *rpc.WSTransport
	var err error
	for attempt := 0; attempt < 5; attempt++ {
		select {
		case <-time.After(time.Second):
		case <-ctx.Done():
			return
		}
		transport, err = rpc.Dial(ctx, wsURL, cfg.Coordinator.Auth.Token)
		if err == nil {
			break
		}
	}
	if err != nil {
		slog.Warn("session probe could not attach to relay", "error", err)
		return
	}

	client := rpc.NewClient(transport, healthURL)
	defer client.Close()

	probe := schedule.NewProbe(client)
	if err := probe.Start(ctx, cfg.Probe.Cron); err != nil {
		slog.Warn("session probe schedule invalid", "cron", cfg.Probe.Cron, "error", err)
		return
	}
	<-ctx.Done()
}

func runAgent() error {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	cfg := loadConfig()

	coordinatorURL := cfg.Agent.CoordinatorURL
	token := cfg.Agent.Token
	// The launcher passes connection details through the environment.
	if v := os.Getenv("LEADBRIDGE_WS_URL"); v != "" {
		coordinatorURL = v
	}
	if v := os.Getenv("LEADBRIDGE_TOKEN"); v != "" {
		token = v
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutdown signal received", "signal", sig)
		cancel()
	}()

	p, err := page.NewChromePage(ctx, page.ChromeOptions{
		Headless:    cfg.Agent.Headless,
		UserDataDir: cfg.Agent.UserDataDir,
	})
	if err != nil {
		return fmt.Errorf("launch browser: %w", err)
	}
	defer p.Close()

	if cfg.Agent.InboxURL != "" {
		if err := p.Navigate(ctx, cfg.Agent.InboxURL); err != nil {
			slog.Warn("initial navigation failed", "url", cfg.Agent.InboxURL, "error", err)
		}
	}

	a := agent.New(p, cfg.Agent.InboxURL, cfg.Agent.ThreadURLBase)
	if err := a.Selectors.Override(cfg.Agent.Selectors); err != nil {
		return fmt.Errorf("apply selector overrides: %w", err)
	}
	a.TypeDelay = pacing.Uniform(
		time.Duration(cfg.Agent.TypingMinMs)*time.Millisecond,
		time.Duration(cfg.Agent.TypingMaxMs)*time.Millisecond,
	)

	slog.Info("agent starting", "coordinator", coordinatorURL)
	return a.Run(ctx, coordinatorURL, token)
}
