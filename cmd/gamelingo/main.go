// Command gamelingo validates and translates game script books.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/ownlingo/gamelingo/config"
	"github.com/spf13/cobra"
)

var (
	configPath string
	envPath    string
	verbose    bool
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "gamelingo",
		Short: "Translate game dialog books with LLMs",
		Long: `gamelingo translates game script books through an LLM provider.

Speaker names, icon codes and quoting are stripped before translation and
restored afterwards. Lines are packed into requests sized to the model's
token budget.

Commands:
  check       Report speaker names missing from the dictionary
  names       List dictionary entries used by the books
  translate   Translate every untranslated line`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

			if err := godotenv.Load(envPath); err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("loading %s: %w", envPath, err)
			}
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", config.FileName, "config file")
	root.PersistentFlags().StringVar(&envPath, "env", ".env", "file with API keys")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(newCheckCmd(), newNamesCmd(), newTranslateCmd())
	return root
}
