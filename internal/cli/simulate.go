package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var (
	simulateTicker string
	simulateCloses string
	simulateWindow int
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Classify a synthetic close series without fetching or persisting",
	RunE: func(cmd *cobra.Command, args []string) error {
		if simulateCloses == "" {
			return errors.New("--closes must be provided")
		}

		parts := strings.Split(simulateCloses, ",")
		closes := make([]decimal.Decimal, 0, len(parts))
		for _, part := range parts {
			value, err := decimal.NewFromString(strings.TrimSpace(part))
			if err != nil {
				return fmt.Errorf("invalid close %q: %w", part, err)
			}
			closes = append(closes, value)
		}

		return getApp().Simulate(cmd.Context(), simulateTicker, closes, simulateWindow)
	},
}

func init() {
	simulateCmd.Flags().StringVar(&simulateTicker, "ticker", "SIM", "Ticker label for the synthetic series")
	simulateCmd.Flags().StringVar(&simulateCloses, "closes", "", "Comma-separated close prices, oldest first")
	simulateCmd.Flags().IntVar(&simulateWindow, "window", 0, "SMA window (defaults to config)")
}
