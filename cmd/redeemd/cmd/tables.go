package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"ticketredemption/internal/pool"
	"ticketredemption/internal/rarity"
	"ticketredemption/internal/types"
)

func tablesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tables",
		Short: "Inspect rarity tables and pool weights",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "validate <file>",
			Short: "Check a rarity file and print the effective odds",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				b, err := os.ReadFile(args[0])
				if err != nil {
					return err
				}
				table, err := rarity.Parse(b)
				if err != nil {
					return err
				}
				weights, err := pool.Parse(b)
				if err != nil {
					return err
				}
				return printTables(cmd, table, weights)
			},
		},
		&cobra.Command{
			Use:   "defaults",
			Short: "Print the built-in rarity tables as YAML",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				b, err := defaultRarityYAML()
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(b)
				return err
			},
		},
	)
	return cmd
}

func printTables(cmd *cobra.Command, table *rarity.Table, weights pool.Config) error {
	out := cmd.OutOrStdout()
	for _, tier := range types.TicketTypes {
		tt := table.Tier(tier)
		for p := 1; p <= tier.DrawCount(); p++ {
			if _, err := fmt.Fprintf(out, "%-6s %d  %s\n", tier, p, tt[p]); err != nil {
				return err
			}
		}
	}
	if _, err := fmt.Fprintf(out, "pools  default  %s\n", weights.Default); err != nil {
		return err
	}
	for _, r := range types.Rarities {
		if w, ok := weights.ByRarity[r]; ok {
			if _, err := fmt.Fprintf(out, "pools  %-8s %s\n", r, w); err != nil {
				return err
			}
		}
	}
	return nil
}

func defaultRarityYAML() ([]byte, error) {
	raw := rarity.Defaults().Raw()
	doc := struct {
		Tables      []rarity.RawTier             `yaml:"tables"`
		PoolWeights map[string]map[string]uint32 `yaml:"poolWeights"`
	}{
		Tables:      raw.Tables,
		PoolWeights: map[string]map[string]uint32{"default": {}},
	}
	for p, w := range pool.Uniform() {
		doc.PoolWeights["default"][p.String()] = w
	}
	return yaml.Marshal(doc)
}
