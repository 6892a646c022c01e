package handlers

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dilanka-heshan/Explore-Sri-Lanka/internal/gazetteer"
)

// NewGazetteerCmd creates the gazetteer command with its subcommands.
func NewGazetteerCmd() *cobra.Command {
	gazCmd := &cobra.Command{
		Use:   "gazetteer",
		Short: "Inspect the location database",
	}

	lookupCmd := &cobra.Command{
		Use:   "lookup [name]",
		Short: "Resolve an attraction name to its gazetteer record",
		Args:  cobra.ExactArgs(1),
		RunE:  gazetteerLookupRunFunc,
	}
	lookupCmd.Flags().Float64("nearby-km", 0, "Also list locations within this distance of the match")

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show location counts by category",
		Args:  cobra.NoArgs,
		RunE:  gazetteerStatsRunFunc,
	}

	gazCmd.AddCommand(lookupCmd)
	gazCmd.AddCommand(statsCmd)
	return gazCmd
}

func openGazetteer() (*gazetteer.Gazetteer, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	g, err := gazetteer.Load(cfg.Gazetteer.FilePath, cfg.Gazetteer.FuzzyThreshold)
	if err != nil {
		return nil, fmt.Errorf("failed to load gazetteer: %w", err)
	}
	return g, nil
}

func gazetteerLookupRunFunc(cmd *cobra.Command, args []string) error {
	g, err := openGazetteer()
	if err != nil {
		return err
	}

	name := strings.TrimSpace(args[0])
	res, err := g.Resolve(name)
	if err != nil {
		return fmt.Errorf("%q: %w", name, err)
	}

	out := struct {
		Query  string          `json:"query"`
		Source string          `json:"source"`
		Entry  gazetteer.Entry `json:"entry"`
		Nearby []nearbyOut     `json:"nearby,omitempty"`
	}{
		Query:  name,
		Source: res.Source,
		Entry:  *res.Entry,
	}

	if radius, _ := cmd.Flags().GetFloat64("nearby-km"); radius > 0 {
		for _, n := range g.Nearby(res.Latitude, res.Longitude, radius) {
			if n.Entry.Name == res.Entry.Name {
				continue
			}
			out.Nearby = append(out.Nearby, nearbyOut{
				Name:       n.Entry.Name,
				Category:   n.Entry.Category,
				DistanceKm: n.DistanceKm,
			})
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

type nearbyOut struct {
	Name       string  `json:"name"`
	Category   string  `json:"category"`
	DistanceKm float64 `json:"distance_km"`
}

func gazetteerStatsRunFunc(cmd *cobra.Command, _ []string) error {
	g, err := openGazetteer()
	if err != nil {
		return err
	}

	stats := g.Stats()
	fmt.Printf("Locations: %d\n", stats.TotalLocations)

	categories := make([]string, 0, len(stats.Categories))
	for c := range stats.Categories {
		categories = append(categories, c)
	}
	sort.Strings(categories)
	for _, c := range categories {
		fmt.Printf("  %-20s %d\n", c, stats.Categories[c])
	}
	return nil
}
