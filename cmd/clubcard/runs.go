package main

import (
	"fmt"

	"clubcard-pipeline/internal/store"

	"github.com/spf13/cobra"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List past pipeline runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := store.InitDB(cfg.RunsDB); err != nil {
			return fmt.Errorf("opening runs database: %w", err)
		}
		defer store.Close()

		runs, err := store.ListRuns()
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Println("No runs recorded yet.")
			return nil
		}

		for _, r := range runs {
			fmt.Printf("%s  %-9s  %5d purchases  %6d products  %s\n",
				r.CreatedAt.Local().Format("2006-01-02 15:04"), r.Status, r.Purchases, r.Products, r.SourceFile)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runsCmd)
}
