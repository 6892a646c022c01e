// Package handlers defines the CLI commands for the itinerary planner.
package handlers

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dilanka-heshan/Explore-Sri-Lanka/internal/config"
	"github.com/dilanka-heshan/Explore-Sri-Lanka/internal/logger"
)

var cfgFile string

// NewRootCmd creates the base exploresl command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "exploresl",
		Short: "Personalized travel itinerary planner for Sri Lanka",
		Long: `exploresl plans multi-day Sri Lanka itineraries from a free-text query
and a traveler profile. It retrieves candidate attractions by semantic
similarity, re-ranks them with a neural scorer, resolves coordinates
through the local gazetteer, groups them into day-sized geographic
clusters and orders each day's visits to minimize travel.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./.exploresl.yaml)")

	rootCmd.AddCommand(NewPlanCmd())
	rootCmd.AddCommand(NewGazetteerCmd())

	return rootCmd
}

// Execute runs the root command. Called by main.
func Execute() {
	logger.Init()
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig loads configuration honoring the --config flag.
func loadConfig() (*config.Config, error) {
	return config.Load(cfgFile)
}
