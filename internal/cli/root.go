package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	cfg    *Config
	client *Client
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cfg = DefaultConfig()

	rootCmd := &cobra.Command{
		Use:   "combat",
		Short: "CLI for the combat tracker API",
		Long: `combat drives a combat tracker server from the terminal.

It manages the player and monster library, runs encounters turn by turn,
rolls dice, syncs with cloud storage and tails live combat updates.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			client = NewClient(cfg.ServerURL, cfg.APIKey)
			return nil
		},
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfg.ServerURL, "server", cfg.ServerURL, "Server URL (env: COMBAT_SERVER)")
	rootCmd.PersistentFlags().StringVar(&cfg.APIKey, "api-key", cfg.APIKey, "API key (env: COMBAT_API_KEY)")
	rootCmd.PersistentFlags().StringVarP(&cfg.Output, "output", "o", cfg.Output, "Output format: text, json")
	rootCmd.PersistentFlags().StringVar(&cfg.Style, "style", cfg.Style, "Notes style: auto, dark, light, notty (env: COMBAT_STYLE)")
	rootCmd.PersistentFlags().IntVar(&cfg.Width, "width", cfg.Width, "Wrap width for rendered notes")
	rootCmd.PersistentFlags().BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "Verbose output")

	rootCmd.AddCommand(newCombatCmd())
	rootCmd.AddCommand(newPlayerCmd())
	rootCmd.AddCommand(newMonsterCmd())
	rootCmd.AddCommand(newSyncCmd())
	rootCmd.AddCommand(newRollCmd())
	rootCmd.AddCommand(newNotesCmd())
	rootCmd.AddCommand(newKeyHashCmd())
	rootCmd.AddCommand(newEventsCmd())
	rootCmd.AddCommand(newHealthCmd())

	return rootCmd
}

// Execute runs the root command, cancelling on SIGINT or SIGTERM
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
