package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"github.com/xaenox/intent-bot/internal/bot"
	"github.com/xaenox/intent-bot/internal/chatbot"
	"github.com/xaenox/intent-bot/internal/classifier"
	"github.com/xaenox/intent-bot/internal/console"
	"github.com/xaenox/intent-bot/internal/corpus"
	"github.com/xaenox/intent-bot/internal/metrics"
	"github.com/xaenox/intent-bot/internal/models"
	"github.com/xaenox/intent-bot/internal/storage"
	"github.com/xaenox/intent-bot/internal/voice"
	"github.com/xaenox/intent-bot/internal/web"
	"github.com/xaenox/intent-bot/pkg/config"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func classifierOptions(c config.ClassifierConfig) classifier.Options {
	return classifier.Options{
		NGramMin:  c.NGramMin,
		NGramMax:  c.NGramMax,
		C:         c.C,
		MaxIter:   c.MaxIter,
		Tolerance: c.Tolerance,
		Seed:      c.Seed,
	}
}

func loadAndTrain() (models.Corpus, *classifier.Model, error) {
	intents, err := corpus.Load(cfg.Corpus.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load corpus: %w", err)
	}
	if dups := intents.DuplicateTags(); len(dups) > 0 {
		log.Warn("Corpus has duplicate tags, replies come from the first record",
			zap.Strings("tags", dups))
	}

	model, err := classifier.Train(intents, classifierOptions(cfg.Classifier), log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to train classifier: %w", err)
	}
	metrics.TrainingIterations.Set(float64(model.FitResult().Iterations))
	return intents, model, nil
}

// newService builds everything a shell needs. The returned close func
// releases the conversation log.
func newService(ctx context.Context) (*chatbot.Service, func(), error) {
	intents, model, err := loadAndTrain()
	if err != nil {
		return nil, nil, err
	}

	var src rand.Source
	if cfg.Classifier.ResponseSeed != 0 {
		src = rand.NewSource(cfg.Classifier.ResponseSeed)
	}
	engine := chatbot.New(model, intents, src, log)

	store, err := storage.New(ctx, storage.Config{
		Backend: cfg.Storage.Backend,
		CSVPath: cfg.Storage.CSVPath,
		Database: storage.DatabaseConfig{
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			DBName:   cfg.Database.DBName,
			SSLMode:  cfg.Database.SSLMode,
		},
		RedisURL: cfg.Redis.URL,
		RedisKey: cfg.Redis.Key,
	}, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	var transcriber voice.Transcriber
	if cfg.OpenAI.APIKey != "" {
		transcriber = voice.NewWhisperTranscriber(voice.WhisperConfig{
			APIKey:   cfg.OpenAI.APIKey,
			BaseURL:  cfg.OpenAI.BaseURL,
			Model:    cfg.OpenAI.Model,
			Language: cfg.OpenAI.Language,
		}, log)
		log.Info("Voice input enabled", zap.String("model", cfg.OpenAI.Model))
	} else {
		log.Info("Voice input disabled, no OpenAI API key configured")
	}

	closeFn := func() {
		if err := store.Close(); err != nil {
			log.Error("Failed to close storage", zap.Error(err))
		}
	}
	return chatbot.NewService(engine, store, transcriber, log), closeFn, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	if withTelegram && cfg.Telegram.Token == "" {
		return errors.New("--telegram needs telegram.token (or TELEGRAM_TOKEN)")
	}

	svc, closeFn, err := newService(cmd.Context())
	if err != nil {
		return err
	}
	defer closeFn()

	srv, err := web.NewServer(web.Config{
		Addr:         cfg.Server.Addr,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		HistoryLimit: cfg.Storage.HistoryLimit,
	}, svc, log)
	if err != nil {
		return err
	}

	var tg *bot.Bot
	if withTelegram {
		if tg, err = bot.New(cfg.Telegram.Token, svc, log); err != nil {
			return err
		}
	}

	// either shell failing stops the other
	g, ctx := errgroup.WithContext(cmd.Context())
	g.Go(func() error { return srv.Run(ctx) })
	if tg != nil {
		g.Go(func() error { return tg.Start(ctx) })
	}
	return g.Wait()
}

func runChat(cmd *cobra.Command, args []string) error {
	svc, closeFn, err := newService(cmd.Context())
	if err != nil {
		return err
	}
	defer closeFn()

	return console.New(svc, cmd.InOrStdin(), cmd.OutOrStdout()).Run(cmd.Context())
}

func runTelegram(cmd *cobra.Command, args []string) error {
	if cfg.Telegram.Token == "" {
		return errors.New("telegram.token (or TELEGRAM_TOKEN) is required")
	}

	svc, closeFn, err := newService(cmd.Context())
	if err != nil {
		return err
	}
	defer closeFn()

	b, err := bot.New(cfg.Telegram.Token, svc, log)
	if err != nil {
		return err
	}
	log.Info("Telegram bot started")
	return b.Start(cmd.Context())
}

func runTrain(cmd *cobra.Command, args []string) error {
	intents, model, err := loadAndTrain()
	if err != nil {
		return err
	}

	res := model.FitResult()
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "intents:    %d\n", len(intents.Tags()))
	fmt.Fprintf(out, "patterns:   %d\n", len(intents.TrainingSet().Texts))
	fmt.Fprintf(out, "features:   %d\n", model.Features())
	fmt.Fprintf(out, "iterations: %d\n", res.Iterations)
	fmt.Fprintf(out, "converged:  %t\n", res.Converged)
	fmt.Fprintf(out, "loss:       %.6f\n", res.Loss)
	fmt.Fprintf(out, "accuracy:   %.2f%%\n", 100*model.Accuracy(intents))

	ts := intents.TrainingSet()
	var misses []string
	for i, text := range ts.Texts {
		if got := model.Predict(text); got != ts.Tags[i] {
			misses = append(misses, fmt.Sprintf("  %q: want %s, got %s", text, ts.Tags[i], got))
		}
	}
	sort.Strings(misses)
	for _, m := range misses {
		fmt.Fprintln(out, m)
	}

	if !res.Converged {
		fmt.Fprintln(os.Stderr, "warning: optimiser hit classifier.max_iter before converging")
	}
	return nil
}
