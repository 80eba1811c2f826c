package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/imacat/mia-accounting-django-sub000/internal/ledger"
	"github.com/imacat/mia-accounting-django-sub000/internal/model"
	"github.com/imacat/mia-accounting-django-sub000/internal/txnref"
)

func newTxnCommand(g *globals) *cobra.Command {
	txnCmd := &cobra.Command{
		Use:   "txn",
		Short: "Record, edit and arrange transactions",
	}
	txnCmd.AddCommand(
		newTxnSubmitCommand(g),
		newTxnShowCommand(g),
		newTxnDeleteCommand(g),
		newTxnReorderCommand(g),
	)
	return txnCmd
}

func newTxnSubmitCommand(g *globals) *cobra.Command {
	var file string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "submit -f <request.json>",
		Short: "Create or edit a transaction from a JSON request",
		Long: "Reads a transaction request like the one `mia txn show --json` prints.\n" +
			"Set transactionId to edit; leave it out to create. Use - for stdin.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := readRequest(cmd.InOrStdin(), file)
			if err != nil {
				return err
			}
			return g.run(cmd, func(ctx context.Context, a *app) error {
				id, err := a.ledger.Submit(ctx, req)
				var fail *ledger.ValidationFailure
				if errors.As(err, &fail) {
					if asJSON {
						if err := writeJSON(cmd.OutOrStdout(), fail); err != nil {
							return err
						}
					} else {
						writeFailure(cmd.ErrOrStderr(), fail)
					}
					return fmt.Errorf("transaction rejected: %d problems", len(fail.FieldErrors)+len(fail.FormErrors))
				}
				if err != nil {
					return err
				}
				txn, err := a.ledger.Get(ctx, id)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Saved transaction %s\n", txnref.Format(txn.Date, txn.Ord))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "request file, or - for stdin (required)")
	_ = cmd.MarkFlagRequired("file")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print validation problems as JSON")
	return cmd
}

func readRequest(stdin io.Reader, file string) (ledger.SubmitRequest, error) {
	var r io.Reader = stdin
	if file != "-" {
		f, err := os.Open(file)
		if err != nil {
			return ledger.SubmitRequest{}, fmt.Errorf("opening %s: %w", file, err)
		}
		defer f.Close()
		r = f
	}
	var req ledger.SubmitRequest
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return ledger.SubmitRequest{}, fmt.Errorf("parsing request: %w", err)
	}
	return req, nil
}

func writeFailure(w io.Writer, fail *ledger.ValidationFailure) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "WHERE\tCODE\tPROBLEM")
	for _, e := range fail.FormErrors {
		fmt.Fprintf(tw, "transaction\t%s\t%s\n", e.Code, e.Message)
	}
	for _, e := range fail.FieldErrors {
		where := e.Field
		if e.Side != "" {
			where = fmt.Sprintf("%s %d %s", e.Side, e.Line, e.Field)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", where, e.Code, e.Message)
	}
	_ = tw.Flush()
}

// lookup finds a transaction by reference or by numeric ID.
func lookup(ctx context.Context, a *app, arg string) (model.Transaction, error) {
	if id, err := strconv.ParseInt(arg, 10, 64); err == nil {
		return a.ledger.Get(ctx, id)
	}
	return a.ledger.Lookup(ctx, arg)
}

func newTxnShowCommand(g *globals) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <ref>",
		Short: "Show a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.run(cmd, func(ctx context.Context, a *app) error {
				txn, err := lookup(ctx, a, args[0])
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), a.ledger.RequestOf(txn))
				}
				return writeTransaction(cmd.OutOrStdout(), a, txn)
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as an editable request")
	return cmd
}

func writeTransaction(w io.Writer, a *app, txn model.Transaction) error {
	ref := txnref.Format(txn.Date, txn.Ord)
	fmt.Fprintf(w, "%s  %s\n", ref, a.ledger.TypeOf(txn))
	if txn.Notes != "" {
		fmt.Fprintf(w, "%s\n", txn.Notes)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "REF\tACCOUNT\tSUMMARY\tDEBIT\tCREDIT\t")
	for _, r := range txn.Records() {
		debit, credit := r.Amount.StringFixed(2), ""
		if r.IsCredit {
			debit, credit = "", debit
		}
		fmt.Fprintf(tw, "%s\t%s %s\t%s\t%s\t%s\t\n",
			txnref.FormatRecord(ref, r.Side(), r.Ord), r.AccountCode, r.AccountTitle, r.Summary, debit, credit)
	}
	fmt.Fprintf(tw, "\t\tTotal\t%s\t%s\t\n", txn.DebitTotal().StringFixed(2), txn.CreditTotal().StringFixed(2))
	return tw.Flush()
}

func newTxnDeleteCommand(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <ref>",
		Short: "Delete a transaction and its records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.run(cmd, func(ctx context.Context, a *app) error {
				txn, err := lookup(ctx, a, args[0])
				if err != nil {
					return err
				}
				if err := a.ledger.Delete(ctx, txn.ID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted transaction %s\n", txnref.Format(txn.Date, txn.Ord))
				return nil
			})
		},
	}
	return cmd
}

func newTxnReorderCommand(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reorder <date> <ref>...",
		Short: "Set the order of the transactions on a date",
		Long:  "Lists every transaction of the date, by reference or ID, in the new order.",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			date, err := time.Parse(model.DateFormat, args[0])
			if err != nil {
				return fmt.Errorf("parsing date %q: %w", args[0], err)
			}
			return g.run(cmd, func(ctx context.Context, a *app) error {
				ids := make([]int64, 0, len(args)-1)
				for _, arg := range args[1:] {
					txn, err := lookup(ctx, a, arg)
					if err != nil {
						return err
					}
					ids = append(ids, txn.ID)
				}
				if err := a.ledger.Reorder(ctx, date, ids); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Reordered %d transactions on %s\n", len(ids), args[0])
				return nil
			})
		},
	}
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
