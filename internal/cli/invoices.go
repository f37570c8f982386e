package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/diewo77/devinvoice/internal/calc"
	"github.com/diewo77/devinvoice/internal/lifecycle"
	"github.com/diewo77/devinvoice/internal/policy"
	"github.com/diewo77/devinvoice/internal/sequence"
	"github.com/diewo77/devinvoice/internal/services"
	"github.com/spf13/cobra"
)

func newInvoicesCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "invoices",
		Short: "List, show and move invoices through their lifecycle",
	}

	overdue := &cobra.Command{
		Use:   "overdue",
		Short: "List sent invoices past their due date",
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, _ := cmd.Flags().GetString("owner")
			svc := services.NewInvoiceService(e.conn, policy.NewAllocator(e.conn, e.cfg.Sequence))
			invoices, err := svc.ListOverdue(cmd.Context(), owner)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(invoices) == 0 {
				fmt.Fprintln(out, "no overdue invoices")
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NUMBER\tCLIENT\tDUE\tTOTAL")
			for _, inv := range invoices {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", inv.Number, inv.Client.Name,
					inv.DueDate.Format("2006-01-02"), calc.FormatCurrency(inv.Total))
			}
			return tw.Flush()
		},
	}
	overdue.Flags().String("owner", "", "Owner user id")
	_ = overdue.MarkFlagRequired("owner")

	status := &cobra.Command{
		Use:     "status",
		Short:   "Move an invoice to another status",
		Example: `  invoicectl invoices status --owner 4f1c... --id 9b2e... --to paid`,
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, _ := cmd.Flags().GetString("owner")
			id, _ := cmd.Flags().GetString("id")
			to, _ := cmd.Flags().GetString("to")
			target, err := lifecycle.ParseStatus(to)
			if err != nil {
				return err
			}
			svc := services.NewInvoiceService(e.conn, policy.NewAllocator(e.conn, e.cfg.Sequence))
			inv, err := svc.ChangeStatus(cmd.Context(), owner, id, target)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", inv.Number, inv.Status)
			return nil
		},
	}
	status.Flags().String("owner", "", "Owner user id")
	status.Flags().String("id", "", "Invoice id")
	status.Flags().String("to", "", "Target status (draft, sent, paid)")
	for _, f := range []string{"owner", "id", "to"} {
		_ = status.MarkFlagRequired(f)
	}

	show := &cobra.Command{
		Use:     "show",
		Short:   "Print one invoice by number",
		Example: `  invoicectl invoices show --owner 4f1c... --number INV-2026-007`,
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, _ := cmd.Flags().GetString("owner")
			number, _ := cmd.Flags().GetString("number")
			if _, err := sequence.Parse(number); err != nil {
				return err
			}
			svc := services.NewInvoiceService(e.conn, policy.NewAllocator(e.conn, e.cfg.Sequence))
			inv, err := svc.GetByNumber(cmd.Context(), owner, number)
			if err != nil {
				return err
			}

			state := string(inv.Status)
			if inv.IsOverdue(time.Now().UTC()) {
				state += " (overdue)"
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(tw, "Number:\t%s\n", inv.Number)
			fmt.Fprintf(tw, "Status:\t%s\n", state)
			fmt.Fprintf(tw, "Client:\t%s\n", inv.Client.Name)
			fmt.Fprintf(tw, "Date:\t%s\n", inv.Date.Format("2006-01-02"))
			fmt.Fprintf(tw, "Due:\t%s\n", inv.DueDate.Format("2006-01-02"))
			fmt.Fprintf(tw, "Lines:\t%d\n", len(inv.LineItems))
			fmt.Fprintf(tw, "Subtotal:\t%s\n", calc.FormatCurrency(inv.Subtotal))
			fmt.Fprintf(tw, "Tax (%s%%):\t%s\n", inv.TaxRate.String(), calc.FormatCurrency(inv.TaxAmount))
			fmt.Fprintf(tw, "Total:\t%s\n", calc.FormatCurrency(inv.Total))
			return tw.Flush()
		},
	}
	show.Flags().String("owner", "", "Owner user id")
	show.Flags().String("number", "", "Invoice number, e.g. INV-2026-007")
	for _, f := range []string{"owner", "number"} {
		_ = show.MarkFlagRequired(f)
	}

	cmd.AddCommand(overdue, status, show)
	return cmd
}
