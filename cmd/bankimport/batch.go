package main

import (
	"fmt"

	"condo-ledger-backend/internal/app"
	"condo-ledger-backend/internal/domain"

	"github.com/spf13/cobra"
)

var summaryCmd = &cobra.Command{
	Use:   "summary <batch-id>",
	Short: "Show counts and amounts per reconciliation status",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		return withServices(ctx, func(svc *app.Services) error {
			summary, err := svc.Reconciliation.BatchSummary(ctx, args[0])
			if err != nil {
				return err
			}
			printSummary(cmd, summary)
			return nil
		})
	},
}

var payCmd = &cobra.Command{
	Use:   "pay <batch-id>",
	Short: "Create payments for every matched row of a batch",
	Long: `Create and apply a payment for every matched row of the batch that has no
payment yet. Rows are processed one by one; a failing row is reported and the
rest continue.`,
	Args: cobra.ExactArgs(1),
	RunE: runPay,
}

func init() {
	rootCmd.AddCommand(summaryCmd)
	rootCmd.AddCommand(payCmd)

	payCmd.Flags().Int64("actor", 0, "User id recorded as the creator of the payments")
	payCmd.Flags().String("method", string(domain.PaymentMethodBankTransfer), "Payment method")
	_ = payCmd.MarkFlagRequired("actor")
}

func runPay(cmd *cobra.Command, args []string) error {
	actorID, _ := cmd.Flags().GetInt64("actor")
	method, _ := cmd.Flags().GetString("method")
	if !domain.PaymentMethod(method).Valid() {
		return fmt.Errorf("unknown payment method %q", method)
	}

	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	return withServices(ctx, func(svc *app.Services) error {
		rows, err := svc.Reconciliation.BatchRows(ctx, args[0])
		if err != nil {
			return err
		}
		ready, created := 0, 0
		for _, row := range rows {
			if !row.CanCreatePayment() {
				continue
			}
			ready++
			payment, apps, err := svc.Reconciliation.CreatePayment(ctx, actorID, row.ID, domain.PaymentMethod(method))
			if err != nil {
				fmt.Fprintf(out, "row %d: %v\n", row.ID, err)
				continue
			}
			created++
			fmt.Fprintf(out, "row %d: payment %s %s applied to %d invoices\n", row.ID, payment.Number, payment.Amount.StringFixed(2), len(apps))
		}
		fmt.Fprintf(out, "%d of %d matched rows paid\n", created, ready)
		return nil
	})
}
