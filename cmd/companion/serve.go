package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os/signal"
	"syscall"

	"github.com/alexschlessinger/companion/conversation"
	"github.com/alexschlessinger/companion/internal/config"
	"github.com/alexschlessinger/companion/internal/janitor"
	"github.com/alexschlessinger/companion/internal/log"
	"github.com/alexschlessinger/companion/internal/metrics"
	"github.com/alexschlessinger/companion/llm"
	"github.com/alexschlessinger/companion/mood"
	"github.com/alexschlessinger/companion/prompt"
	"github.com/alexschlessinger/companion/server"
	"github.com/alexschlessinger/companion/sessions"
	"github.com/alexschlessinger/companion/stats"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML config file",
			},
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address",
			},
			&cli.StringFlag{
				Name:    "model",
				Aliases: []string{"m"},
				Usage:   "Model to use (provider/model format)",
			},
			&cli.StringFlag{
				Name:  "baseurl",
				Usage: "Base URL for OpenAI-compatible endpoints or Ollama",
			},
			&cli.Float64Flag{
				Name:  "temp",
				Usage: "Temperature for sampling",
			},
			&cli.IntFlag{
				Name:  "maxtokens",
				Usage: "Maximum tokens to generate per reply",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "Upstream completion timeout",
			},
			&cli.DurationFlag{
				Name:  "ttl",
				Usage: "Drop sessions idle for longer than this (0 keeps them forever)",
			},
			&cli.BoolFlag{
				Name:    "debug",
				Aliases: []string{"d"},
				Usage:   "Enable debug logging",
			},
		},
		Action: runServe,
	}
}

// applyFlags overrides config values with flags given explicitly
func applyFlags(cfg *config.Config, cmd *cli.Command) {
	if cmd.IsSet("addr") {
		cfg.Server.Addr = cmd.String("addr")
	}
	if cmd.IsSet("model") {
		cfg.LLM.Model = cmd.String("model")
	}
	if cmd.IsSet("baseurl") {
		cfg.LLM.BaseURL = cmd.String("baseurl")
	}
	if cmd.IsSet("temp") {
		t := cmd.Float64("temp")
		cfg.LLM.Temperature = &t
	}
	if cmd.IsSet("maxtokens") {
		cfg.LLM.MaxTokens = cmd.Int("maxtokens")
	}
	if cmd.IsSet("timeout") {
		cfg.LLM.Timeout = cmd.Duration("timeout")
	}
	if cmd.IsSet("ttl") {
		cfg.Sessions.TTL = cmd.Duration("ttl")
	}
	if cmd.IsSet("debug") {
		cfg.Log.Debug = cmd.Bool("debug")
	}
}

func runServe(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return err
	}
	applyFlags(cfg, cmd)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	flush, err := log.InitLogger(cfg.Log.Debug)
	if err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}
	defer flush()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.Server.Addr, err)
	}
	return serve(ctx, cfg, llm.NewMultiPass(cfg.LLM.APIKeys), ln)
}

// serve runs the API on ln with client as the model backend until ctx is done
func serve(ctx context.Context, cfg *config.Config, client llm.LLM, ln net.Listener) error {
	m := metrics.NewMetrics()
	classifier := mood.Default()
	store := sessions.NewSyncMapSessionStore(&cfg.Sessions.SessionConfig)

	service := conversation.NewService(store, client, conversation.Config{
		Model:       cfg.LLM.Model,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.Temperature(),
		Timeout:     cfg.LLM.Timeout,
		BaseURL:     cfg.LLM.BaseURL,
	},
		conversation.WithComposer(prompt.NewComposer(cfg.RecentContext())),
		conversation.WithClassifier(classifier),
		conversation.WithMetrics(m),
	)

	srv, err := server.New(server.Options{
		Addr:    cfg.Server.Addr,
		Store:   store,
		Service: service,
		Stats:   stats.NewAggregator(store, classifier),
		Metrics: m,
	})
	if err != nil {
		ln.Close()
		return err
	}

	var j *janitor.Janitor
	if cfg.Sessions.TTL > 0 {
		if j, err = janitor.New(cfg.Sessions.ExpirySchedule, store, m); err != nil {
			ln.Close()
			return err
		}
	}

	zap.S().Infow("companion_config",
		"model", cfg.LLM.Model,
		"max_history", cfg.Sessions.MaxHistory,
		"ttl", cfg.Sessions.TTL,
		"recent_context", cfg.RecentContext(),
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Serve(ln)
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if j != nil {
		g.Go(func() error {
			return j.Run(ctx)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
