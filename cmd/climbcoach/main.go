package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/moorebrett0/climbcoach/internal/backend"
	"github.com/moorebrett0/climbcoach/internal/brain"
	"github.com/moorebrett0/climbcoach/internal/climber"
	"github.com/moorebrett0/climbcoach/internal/coach"
	"github.com/moorebrett0/climbcoach/internal/config"
	"github.com/moorebrett0/climbcoach/internal/dataset"
	"github.com/moorebrett0/climbcoach/internal/discord"
	"github.com/moorebrett0/climbcoach/internal/exercise"
	"github.com/moorebrett0/climbcoach/internal/logger"
	"github.com/moorebrett0/climbcoach/internal/monitor"
	"github.com/moorebrett0/climbcoach/internal/proactive"
	"github.com/moorebrett0/climbcoach/internal/server"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to the YAML config file")
	ask := flag.String("ask", "", "answer one question and exit")
	stats := flag.Bool("stats", false, "print dataset statistics and exit")
	flag.Parse()

	if err := run(*configPath, *ask, *stats); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(configPath, ask string, stats bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	slog.SetDefault(logger.New(cfg.Logging))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Data ---
	httpClient := &http.Client{Timeout: 30 * time.Second}
	store := dataset.Load(ctx, dataset.Sources{
		GymPath:     cfg.Data.GymPath,
		AscentsPath: cfg.Data.AscentsPath,
		SheetsURL:   cfg.Data.SheetsURL,
	}, httpClient)

	if stats {
		return printStats(store)
	}

	exercises, err := exercise.Build(store, cfg.Coach.SearchCacheBytes)
	if err != nil {
		return fmt.Errorf("exercise index: %w", err)
	}
	defer exercises.Close()
	climbers := climber.NewScorer(store.Sheet)
	api := backend.NewClient(cfg.Backend.BaseURL, httpClient)

	// --- Coach ---
	b, err := brain.New(ctx, brain.Config{
		ClaudeAPIKey:  cfg.Claude.APIKey,
		ClaudeModel:   cfg.Claude.Model,
		GeminiAPIKey:  cfg.Gemini.APIKey,
		GeminiModel:   cfg.Gemini.Model,
		OpenAIAPIKey:  cfg.OpenAI.APIKey,
		OpenAIModel:   cfg.OpenAI.Model,
		OpenAIBaseURL: cfg.OpenAI.BaseURL,
		Provider:      cfg.AI.Provider,
		MaxTokens:     cfg.Claude.MaxTokens,
		MaxIterations: cfg.Coach.MaxIterations,
		ParallelTools: cfg.Coach.ParallelTools,
	})
	if err != nil {
		return fmt.Errorf("brain: %w", err)
	}

	variant, err := coach.ParseVariant(cfg.Coach.Variant)
	if err != nil {
		return err
	}
	c := coach.New(b, variant, coach.Deps{
		Exercises: exercises,
		Climbers:  climbers,
		Backend:   api,
		Completer: b,
	})
	slog.Info("coach ready", "variant", variant, "tools", len(c.Tools()), "exercises", exercises.Len())

	if ask != "" {
		reply, err := c.Ask(ctx, ask)
		if err != nil {
			return err
		}
		fmt.Println(reply)
		return nil
	}

	// --- Front-ends ---
	g, ctx := errgroup.WithContext(ctx)

	srv := server.New(cfg.Server, c, server.Status{
		Exercises: exercises.Len(),
		SheetRows: store.Stats().SheetRows,
		Ascents:   len(store.Ascents),
	})
	g.Go(func() error {
		return srv.Run(ctx)
	})

	if cfg.Discord.Enabled {
		bot, err := discord.NewBot(cfg.Discord.BotToken, cfg.Discord.ChannelID)
		if err != nil {
			return fmt.Errorf("discord: %w", err)
		}
		discord.NewRouter(bot, c, api)
		g.Go(func() error {
			return bot.Start(ctx)
		})

		if cfg.Proactive.Enabled {
			mon := monitor.New(api, cfg.Proactive.CheckInterval, nil)
			sched := proactive.New(bot, mon, proactive.Config{
				CheckInterval: cfg.Proactive.CheckInterval,
				MorningHour:   cfg.Proactive.MorningHour,
				AlertCooldown: cfg.Proactive.AlertCooldown,
			})
			g.Go(func() error {
				mon.Run(ctx)
				return nil
			})
			g.Go(func() error {
				sched.Run(ctx)
				return nil
			})
		}
	}

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	slog.Info("shutdown complete")
	return err
}

func printStats(store *dataset.Store) error {
	out := struct {
		dataset.Stats
		GradeDistribution []dataset.GradeShare `json:"grade_distribution"`
	}{
		Stats:             store.Stats(),
		GradeDistribution: store.GradeDistribution(20),
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
