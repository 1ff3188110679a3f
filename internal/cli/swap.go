package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/cn1tools/cn1update/internal/logging"
	"github.com/cn1tools/cn1update/internal/replace"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(swapCmd)
}

var swapCmd = &cobra.Command{
	Use:    replace.SwapCommand + " <staged> <dest>",
	Short:  "Move a staged file over a locked destination once it is released",
	Hidden: true,
	Args:   cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		out, err := logging.RotatingFile(cfg.SwapLogPath())
		if err != nil {
			return fmt.Errorf("opening swap log: %w", err)
		}
		defer out.Close()

		logger := logging.New(logging.Options{Level: slog.LevelDebug, Output: out}).
			With(slog.String(logging.KeySwap, os.Getenv(replace.SwapIDEnv)))

		s := &replace.Swapper{
			Attempts: cfg.Swap.Attempts,
			Initial:  cfg.Swap.InitialDelay,
			Max:      cfg.Swap.MaxDelay,
			Settle:   cfg.Swap.SettleDelay,
			Logger:   logger,
		}
		return s.Swap(cmd.Context(), args[0], args[1])
	},
}
