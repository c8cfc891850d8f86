package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"clubcard-pipeline/internal/model"
	"clubcard-pipeline/internal/pipeline"
	"clubcard-pipeline/internal/store"
	"clubcard-pipeline/internal/upload"
	"clubcard-pipeline/pkg/utils"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	contribute bool
	topCount   int
	sortOrder  string
)

var processCmd = &cobra.Command{
	Use:   "process <export.json>",
	Short: "Run the pipeline over an export file and write CSV datasets",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runProcess(cmd.Context(), args[0])
	},
}

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().BoolVar(&contribute, "contribute", false, "upload the anonymized datasets after processing")
	processCmd.Flags().IntVar(&topCount, "top", 10, "number of products in the top-products table")
	processCmd.Flags().StringVar(&sortOrder, "sort", string(pipeline.DefaultSortOrder), "top-products ordering")
}

func runProcess(ctx context.Context, sourceFile string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	order, err := pipeline.ParseSortOrder(sortOrder)
	if err != nil {
		return err
	}
	family, err := utils.ParseHashFamily(cfg.HashFamily)
	if err != nil {
		return err
	}

	if err := store.InitDB(cfg.RunsDB); err != nil {
		return fmt.Errorf("opening runs database: %w", err)
	}
	defer store.Close()

	runID := uuid.NewString()
	if err := store.SaveRun(runID, sourceFile); err != nil {
		return fmt.Errorf("recording run: %w", err)
	}

	session, bundle, err := executeRun(sourceFile, cfg.Postcode, family)
	if err != nil {
		recordFailure(runID, err)
		return err
	}
	if err := store.SaveRunCounts(runID, len(session.Purchases), len(session.Products)); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not record run counts: %v\n", err)
	}

	printSummary(session, order)

	outDir := filepath.Join(cfg.OutputDir, runID)
	if _, err := pipeline.ExportAll(session, bundle, outDir); err != nil {
		recordFailure(runID, err)
		return err
	}
	fmt.Printf("\nCSV datasets written to %s\n", outDir)

	if contribute {
		if cfg.UploadEndpoint == "" {
			err := fmt.Errorf("no upload-endpoint configured; cannot contribute")
			recordFailure(runID, err)
			return err
		}
		if err := upload.New(cfg.UploadEndpoint).Contribute(ctx, bundle); err != nil {
			recordFailure(runID, err)
			return err
		}
		fmt.Println("Anonymized data contributed. Thank you!")
	}

	return store.UpdateRunStatus(runID, "completed")
}

// recordFailure marks a run failed. Bookkeeping problems are reported
// but never mask the run error itself.
func recordFailure(runID string, runErr error) {
	if err := store.UpdateRunStatus(runID, "failed"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not update run status: %v\n", err)
	}
	if err := store.SaveRunError(runID, runErr); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not record run error: %v\n", err)
	}
}

func executeRun(sourceFile, postcode string, family utils.HashFamily) (*model.Session, *pipeline.Bundle, error) {
	data, err := os.ReadFile(sourceFile)
	if err != nil {
		return nil, nil, fmt.Errorf("reading export: %w", err)
	}

	session, err := pipeline.Run(data, pipeline.Options{Postcode: postcode})
	if err != nil {
		return nil, nil, err
	}

	bundle := pipeline.Anonymizer{Hash: family}.Anonymize(session)
	return session, bundle, nil
}

func printSummary(session *model.Session, order pipeline.SortOrder) {
	purchases := session.Purchases

	fmt.Printf("\n=== Shopping Summary ===\n")
	fmt.Printf("Transactions:     %d\n", len(purchases))
	fmt.Printf("Stores visited:   %d\n", pipeline.CountStoresVisited(purchases))

	earliest, ok := pipeline.EarliestPurchaseDate(purchases)
	latest, _ := pipeline.LatestPurchaseDate(purchases)
	if ok {
		fmt.Printf("Date range:       %s to %s\n", utils.FormatPrettyDate(earliest), utils.FormatPrettyDate(latest))
		if span, err := pipeline.TimeBetween(earliest, latest); err == nil {
			fmt.Printf("Covering:         %d years, %d months, %d days\n", span.Years, span.Months, span.Days)
		}
	}

	totalSpent := pipeline.TotalAmountSpent(purchases)
	fmt.Printf("Total spent:      %s\n", utils.FormatGBP(totalSpent))
	fmt.Printf("Total saved:      %s\n", utils.FormatGBP(pipeline.TotalAmountSaved(purchases)))
	fmt.Printf("Items bought:     %d\n", pipeline.CountItems(purchases))
	fmt.Printf("Average spend:    %s\n", utils.FormatGBP(pipeline.AverageSpend(totalSpent, len(purchases))))
	if ok {
		fmt.Printf("Weekly spend:     %s\n", utils.FormatGBP(pipeline.AverageSpendPerWeek(earliest, latest, totalSpent)))
		fmt.Printf("Shop every:       %.1f days\n", pipeline.Frequency(earliest, latest, len(purchases)))
	}

	if gap, ok := pipeline.GapBetweenPurchases(purchases); ok {
		fmt.Printf("Longest gap:      %d days (%s to %s)\n",
			gap.LongestDays, utils.FormatDisplayDate(gap.LongestStart), utils.FormatDisplayDate(gap.LongestEnd))
	}
	if shop, ok := pipeline.MostExpensiveShop(purchases); ok {
		fmt.Printf("Dearest shop:     %s at %s, %d items, %s\n",
			utils.FormatDisplayDate(shop.Date), shop.StoreName, shop.NumberOfItems, utils.FormatGBP(shop.NetBasketValue))
	}
	if shop, ok := pipeline.BiggestShop(purchases); ok {
		fmt.Printf("Biggest shop:     %s at %s, %d items, %s\n",
			utils.FormatDisplayDate(shop.Date), shop.StoreName, shop.NumberOfItems, utils.FormatGBP(shop.NetBasketValue))
	}

	fmt.Printf("\n=== Spend by weekday ===\n")
	for _, share := range pipeline.SpendByWeekday(purchases) {
		fmt.Printf("%-10s %10s  %3d%%\n", share.Day, utils.FormatGBP(share.Total), share.Percentage)
	}

	fmt.Printf("\n=== Top %d products (%s) ===\n", topCount, string(order))
	for _, p := range pipeline.TopProducts(session.AggregatedProducts, order, topCount) {
		fmt.Printf("%4d x %-40s  avg %s\n", p.TotalQuantity, p.Name, utils.FormatGBP(p.AveragePrice))
	}
}
