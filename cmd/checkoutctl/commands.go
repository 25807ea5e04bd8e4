package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/DanielPopoola/ficmart-checkout/internal/interfaces/rest"
	"github.com/spf13/cobra"
)

func orderCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "order [order-id]",
		Short: "Show an order with its charge, refunds and notes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var order rest.OrderResponse
			raw, err := clientFor(cmd).do(cmd.Context(), "GET", orderPath(args[0]), nil, &order)
			if err != nil {
				return err
			}
			if wantJSON(cmd) {
				return printRaw(cmd.OutOrStdout(), raw)
			}
			printOrder(cmd.OutOrStdout(), order)
			return nil
		},
	}
}

func refundCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "refund [order-id] [amount]",
		Short: "Refund part or all of an order's charge",
		Long: `Refund an amount in major units (e.g. 12.50) against the charge recorded
for the order. The refund is submitted once; a failure is not retried.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			reason, _ := cmd.Flags().GetString("reason")

			var refund rest.RefundResponse
			raw, err := clientFor(cmd).do(cmd.Context(), "POST", orderPath(args[0], "/refunds"), rest.RefundRequest{
				Amount: args[1],
				Reason: reason,
			}, &refund)
			if err != nil {
				return err
			}
			if wantJSON(cmd) {
				return printRaw(cmd.OutOrStdout(), raw)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Refunded %s %s on order %s (refund %s, charge %s)\n",
				refund.Amount, strings.ToUpper(refund.Currency), refund.OrderID, refund.ID, refund.ChargeID)
			return nil
		},
	}

	cmd.Flags().StringP("reason", "r", "", "Reason recorded with the refund")

	return cmd
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status [order-id] [status]",
		Short: "Move an order to a new status and publish the transition",
		Long: `Move an order to a new status. Publishing a capture status (processing by
default) triggers the deferred charge for stored-customer orders; sending it
again is safe because a paid order is never charged twice.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var change rest.StatusChangeResponse
			raw, err := clientFor(cmd).do(cmd.Context(), "POST", orderPath(args[0], "/status"), rest.StatusChangeRequest{
				Status: args[1],
			}, &change)
			if err != nil {
				return err
			}
			if wantJSON(cmd) {
				return printRaw(cmd.OutOrStdout(), raw)
			}
			from := change.FromStatus
			if from == "" {
				from = "(none)"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Order %s: %s -> %s\n", change.OrderID, from, change.ToStatus)
			return nil
		},
	}
}

func printRaw(w io.Writer, raw []byte) error {
	_, err := fmt.Fprintln(w, string(raw))
	return err
}

func printOrder(w io.Writer, o rest.OrderResponse) {
	fmt.Fprintf(w, "Order %s (#%s)\n", o.ID, o.Number)
	fmt.Fprintln(w, strings.Repeat("=", 40))
	fmt.Fprintf(w, "  Status:    %s\n", o.Status)
	fmt.Fprintf(w, "  Total:     %s %s\n", o.Total, o.Currency)
	if o.BuyerID != "" {
		fmt.Fprintf(w, "  Buyer:     %s\n", o.BuyerID)
	} else {
		fmt.Fprintln(w, "  Buyer:     guest")
	}
	if o.PaymentReference != "" {
		fmt.Fprintf(w, "  Reference: %s\n", o.PaymentReference)
	}

	if o.Charge != nil {
		fmt.Fprintf(w, "\nCharge %s: %s %s", o.Charge.ID, o.Charge.Amount, strings.ToUpper(o.Charge.Currency))
		if !o.Charge.Captured {
			fmt.Fprint(w, " (authorized only)")
		}
		fmt.Fprintln(w)
	} else {
		fmt.Fprintln(w, "\nNot paid")
	}

	if len(o.Refunds) > 0 {
		fmt.Fprintln(w, "\nRefunds:")
		for _, r := range o.Refunds {
			fmt.Fprintf(w, "  %s  %s %s  %s\n", r.ID, r.Amount, strings.ToUpper(r.Currency), r.Status)
		}
	}

	if len(o.Notes) > 0 {
		fmt.Fprintln(w, "\nNotes:")
		for _, n := range o.Notes {
			fmt.Fprintf(w, "  %s  %s\n", n.CreatedAt.Format("2006-01-02 15:04:05"), n.Message)
		}
	}
}
