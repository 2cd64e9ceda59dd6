package main

import (
	"fmt"
	"os"
	"unicode/utf8"

	"condo-ledger-backend/internal/app"
	"condo-ledger-backend/internal/bankimport"
	"condo-ledger-backend/internal/domain"
	"condo-ledger-backend/internal/logger"

	"github.com/spf13/cobra"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <file.csv>",
	Short: "Store a bank export as a new import batch",
	Long: `Parse a bank CSV export and store every valid row as a pending import row.
Rows that cannot be parsed are reported and skipped.`,
	Example: `  # Ingest and match in one go
  bankimport ingest --scope 3 --reconcile export.csv

  # Semicolon separated export, parse only
  bankimport ingest --scope 3 --comma ';' --dry-run export.csv`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().Int64("scope", 0, "Condominium (scope) id the batch belongs to")
	ingestCmd.Flags().String("comma", ",", "Field separator")
	ingestCmd.Flags().Bool("reconcile", false, "Match the batch right after storing it")
	ingestCmd.Flags().Bool("dry-run", false, "Parse the file but store nothing")
	_ = ingestCmd.MarkFlagRequired("scope")
}

func runIngest(cmd *cobra.Command, args []string) error {
	scopeID, _ := cmd.Flags().GetInt64("scope")
	comma, _ := cmd.Flags().GetString("comma")
	reconcile, _ := cmd.Flags().GetBool("reconcile")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	if scopeID <= 0 {
		return fmt.Errorf("scope must be positive")
	}
	if utf8.RuneCountInString(comma) != 1 {
		return fmt.Errorf("comma must be a single character")
	}

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", args[0], err)
	}
	defer f.Close()

	parser := bankimport.NewParser()
	parser.Comma, _ = utf8.DecodeRuneInString(comma)
	result, err := parser.Parse(f)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, skipped := range result.Skipped {
		fmt.Fprintf(out, "skipped %s\n", skipped.Error())
	}
	if dryRun {
		fmt.Fprintf(out, "%d rows parsed, %d skipped (dry run)\n", len(result.Rows), len(result.Skipped))
		return nil
	}
	if len(result.Rows) == 0 {
		return fmt.Errorf("no valid rows in %s", args[0])
	}

	ctx := cmd.Context()
	return withServices(ctx, func(svc *app.Services) error {
		batchID, rows, err := svc.Reconciliation.IngestBatch(ctx, scopeID, result.Rows)
		if err != nil {
			return err
		}
		logger.Info("Import batch stored", "batchID", batchID, "rows", len(rows), "file", args[0])
		fmt.Fprintf(out, "batch %s: %d rows stored, %d skipped\n", batchID, len(rows), len(result.Skipped))

		if !reconcile {
			return nil
		}
		summary, err := svc.Reconciliation.ReconcileBatch(ctx, batchID)
		if err != nil {
			return err
		}
		printSummary(cmd, summary)
		return nil
	})
}

func printSummary(cmd *cobra.Command, s *domain.ImportBatchSummary) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "batch %s (%d rows)\n", s.BatchID, s.Total)
	for _, status := range []domain.ReconciliationStatus{
		domain.ReconciliationPending,
		domain.ReconciliationMatched,
		domain.ReconciliationManualReview,
		domain.ReconciliationRejected,
	} {
		if s.Counts[status] == 0 {
			continue
		}
		fmt.Fprintf(out, "  %-14s %5d  %s\n", status, s.Counts[status], s.Amounts[status].StringFixed(2))
	}
}
