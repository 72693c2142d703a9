package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/forestowl/notekeeper/internal/profile"
	"github.com/forestowl/notekeeper/server/router/status"
	"github.com/forestowl/notekeeper/server/router/telegram"
	reminderrunner "github.com/forestowl/notekeeper/server/runner/reminder"
	aiservice "github.com/forestowl/notekeeper/server/service/ai"
	noteservice "github.com/forestowl/notekeeper/server/service/note"
	"github.com/forestowl/notekeeper/store"
)

const version = "0.2.0"

var rootCmd = &cobra.Command{
	Use:   "notekeeper",
	Short: "A conversational note-taking bot with natural-language reminders",
	RunE: func(cmd *cobra.Command, args []string) error {
		p := &profile.Profile{
			Mode:          viper.GetString("mode"),
			Addr:          viper.GetString("addr"),
			BotToken:      viper.GetString("bot-token"),
			AIAPIKey:      viper.GetString("ai-api-key"),
			AIBaseURL:     viper.GetString("ai-base-url"),
			AIModel:       viper.GetString("ai-model"),
			SweepInterval: viper.GetDuration("sweep-interval"),
			Version:       version,
		}
		p.FromEnv()
		if err := p.Validate(); err != nil {
			return err
		}
		return run(p)
	},
}

func init() {
	rootCmd.PersistentFlags().String("mode", "dev", `mode of the bot, can be "prod" or "dev"`)
	rootCmd.PersistentFlags().String("addr", "", "binding address for the status endpoint, empty disables it")
	rootCmd.PersistentFlags().String("bot-token", "", "messaging platform token")
	rootCmd.PersistentFlags().String("ai-api-key", "", "language-model API key")
	rootCmd.PersistentFlags().String("ai-base-url", "", "language-model endpoint URL")
	rootCmd.PersistentFlags().String("ai-model", "", "chat model used for note analysis")
	rootCmd.PersistentFlags().Duration("sweep-interval", 30*time.Second, "reminder sweep cadence")

	for _, flag := range []string{"mode", "addr", "bot-token", "ai-api-key", "ai-base-url", "ai-model", "sweep-interval"} {
		if err := viper.BindPFlag(flag, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
			panic(err)
		}
	}

	viper.SetEnvPrefix("notekeeper")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func newLogger(p *profile.Profile) *slog.Logger {
	level := slog.LevelInfo
	if p.IsDev() {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if p.IsDev() {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}

func run(p *profile.Profile) error {
	logger := newLogger(p)
	slog.SetDefault(logger)

	registry := store.New()
	notes := noteservice.NewService(registry, logger)
	analyzer := aiservice.NewAnalyzer(aiservice.Config{
		APIKey:  p.AIAPIKey,
		BaseURL: p.AIBaseURL,
		Model:   p.AIModel,
	}, registry, logger)

	bot, err := telegram.New(p.BotToken, registry, notes, analyzer, logger)
	if err != nil {
		return err
	}

	runner := reminderrunner.NewRunner(registry, bot, p.SweepInterval)
	runner.SetLogger(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("notekeeper starting",
		"version", p.Version,
		"mode", p.Mode,
		"ai_enabled", p.IsAIEnabled(),
		"sweep_interval", p.SweepInterval,
	)

	g, ctx := errgroup.WithContext(ctx)

	if err := runner.Start(ctx); err != nil {
		return err
	}
	g.Go(func() error {
		<-ctx.Done()
		runner.Stop()
		return nil
	})

	g.Go(func() error {
		err := bot.Run(ctx)
		if err == context.Canceled {
			return nil
		}
		return err
	})

	if p.Addr != "" {
		statusServer := status.NewServer(p, registry, runner)
		g.Go(statusServer.Start)
		g.Go(func() error {
			<-ctx.Done()
			return statusServer.Shutdown(context.Background())
		})
	}

	return g.Wait()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
