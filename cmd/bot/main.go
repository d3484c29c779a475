package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/xaenox/intent-bot/internal/logger"
	"github.com/xaenox/intent-bot/pkg/config"
	"go.uber.org/zap"
)

var (
	configPath string
	logLevel   string
	addr       string

	withTelegram bool

	cfg *config.Config
	log *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "intentbot",
	Short: "Intent classification chatbot",
	Long: `intentbot answers messages by classifying them into intents with a
TF-IDF + logistic regression model trained at startup, then replying with
one of the intent's canned responses.

Run without arguments to start the web interface.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.LoadConfig(configPath)
		if err != nil {
			return err
		}
		if logLevel != "" {
			cfg.Log.Level = logLevel
		}
		if addr != "" {
			cfg.Server.Addr = addr
		}

		log, err = logger.New(cfg.Log.Level, cfg.Log.Format)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			_ = log.Sync()
		}
	},
	RunE: runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the web interface and JSON API",
	RunE:  runServe,
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat in the terminal",
	RunE:  runChat,
}

var telegramCmd = &cobra.Command{
	Use:   "telegram",
	Short: "Run the Telegram bot",
	RunE:  runTelegram,
}

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train on the corpus and report how well the model fits it",
	RunE:  runTrain,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "config file (missing file uses defaults)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&addr, "addr", "", "web server listen address")

	serveCmd.Flags().BoolVar(&withTelegram, "telegram", false, "also run the Telegram bot on the same conversation log")

	rootCmd.AddCommand(serveCmd, chatCmd, telegramCmd, trainCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
