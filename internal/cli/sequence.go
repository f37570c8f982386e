package cli

import (
	"fmt"
	"time"

	"github.com/diewo77/devinvoice/internal/policy"
	"github.com/diewo77/devinvoice/internal/sequence"
	"github.com/spf13/cobra"
)

func newSequenceCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sequence",
		Short: "Inspect invoice number sequences",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the last number issued from a bucket",
		Example: `  invoicectl sequence show --owner 4f1c... --prefix INV --year 2026`,
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, _ := cmd.Flags().GetString("owner")
			prefix, _ := cmd.Flags().GetString("prefix")
			year, _ := cmd.Flags().GetInt("year")
			if !sequence.ValidPrefix(prefix) {
				return fmt.Errorf("%w: %q", sequence.ErrInvalidPrefix, prefix)
			}

			alloc := policy.NewAllocator(e.conn, e.cfg.Sequence)
			key := sequence.BucketKey{Owner: owner, Prefix: prefix, Year: year}
			last, found, err := alloc.Current(cmd.Context(), key)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !found {
				fmt.Fprintf(out, "%s-%d: no number issued\n", prefix, year)
				return nil
			}
			fmt.Fprintf(out, "%s-%d: last issued %s, next %s\n", prefix, year,
				sequence.Number{Prefix: prefix, Year: year, Seq: last},
				sequence.Number{Prefix: prefix, Year: year, Seq: last + 1})
			return nil
		},
	}
	show.Flags().String("owner", "", "Owner user id")
	show.Flags().String("prefix", "INV", "Invoice prefix")
	show.Flags().Int("year", time.Now().UTC().Year(), "Calendar year of the bucket (UTC)")
	_ = show.MarkFlagRequired("owner")

	cmd.AddCommand(show)
	return cmd
}
