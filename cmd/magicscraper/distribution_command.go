package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

func newDistributionCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "distribution <multiverse-id>",
		Short: "Show how far every reference lies from one reference",
		Long: `Count the indexed references at each Hamming distance from the given
reference fingerprint. The reference itself appears at distance 0. A wide gap
between distance 0 and the next populated distance means the edition is easy
to tell apart.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			logger, closeLog, err := ctx.openLogger(cmd)
			if err != nil {
				return err
			}
			defer closeLog()
			id, err := strconv.Atoi(strings.TrimSpace(args[0]))
			if err != nil {
				return fmt.Errorf("invalid multiverse id %q", args[0])
			}

			engine, err := loadEngine(cfg, logger)
			if err != nil {
				return err
			}
			counts, err := engine.DistanceDistribution(id)
			if err != nil {
				return describeError(err)
			}

			if ctx.jsonOutput() {
				return writeJSON(cmd, counts)
			}
			rows := make([][]string, 0, len(counts))
			for _, c := range counts {
				rows = append(rows, []string{strconv.Itoa(c.Distance), strconv.Itoa(c.Count)})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Distance", "References"},
				rows,
				[]columnAlignment{alignRight, alignRight},
			))
			return nil
		},
	}
}
