package commands

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/imacat/mia-accounting-django-sub000/internal/model"
	"github.com/imacat/mia-accounting-django-sub000/internal/report"
)

type reportFlags struct {
	period   string
	account  string
	page     int
	pageSize int
	asJSON   bool
}

func (f *reportFlags) register(cmd *cobra.Command, withPeriod bool) {
	if withPeriod {
		cmd.Flags().StringVarP(&f.period, "period", "p", "", "period such as 2023-01, 2023, 2023-01-05-2023-02-10 or - (default: this month)")
		cmd.Flags().StringVarP(&f.account, "account", "a", "", "account code (cash and ledger reports; 0 for all cash accounts)")
	}
	cmd.Flags().IntVar(&f.page, "page", 1, "page of a paginated report")
	cmd.Flags().IntVar(&f.pageSize, "page-size", 0, "rows per page (default from config)")
	cmd.Flags().BoolVar(&f.asJSON, "json", false, "print the report as JSON")
}

func newReportCommand(g *globals) *cobra.Command {
	f := &reportFlags{}
	cmd := &cobra.Command{
		Use:       "report <kind>",
		Short:     "Compute a report",
		Long:      "Kinds: " + strings.Join(report.Kinds[:len(report.Kinds)-1], ", ") + ".",
		Args:      cobra.ExactArgs(1),
		ValidArgs: report.Kinds,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := report.Request{
				Kind:        args[0],
				PeriodSpec:  f.period,
				AccountCode: f.account,
				Page:        f.page,
				PageSize:    f.pageSize,
			}
			return g.run(cmd, func(ctx context.Context, a *app) error {
				return renderReport(ctx, cmd.OutOrStdout(), a, req, f.asJSON)
			})
		},
	}
	f.register(cmd, true)
	return cmd
}

func newSearchCommand(g *globals) *cobra.Command {
	f := &reportFlags{}
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Find records by account, summary, notes, date or amount",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := report.Request{
				Kind:     report.KindSearch,
				Query:    strings.Join(args, " "),
				Page:     f.page,
				PageSize: f.pageSize,
			}
			return g.run(cmd, func(ctx context.Context, a *app) error {
				return renderReport(ctx, cmd.OutOrStdout(), a, req, f.asJSON)
			})
		},
	}
	f.register(cmd, false)
	return cmd
}

func renderReport(ctx context.Context, w io.Writer, a *app, req report.Request, asJSON bool) error {
	res, err := a.reports.Run(ctx, req)
	if err != nil {
		return err
	}
	if asJSON {
		return writeJSON(w, res)
	}

	if res.Period != nil {
		fmt.Fprintf(w, "%s %s\n\n", res.Kind, res.Period.PrepDesc)
	}
	var warnings []string
	switch r := res.Report.(type) {
	case *report.CashReport:
		fmt.Fprintf(w, "%s %s\n", r.Account.Code, r.Account.Title)
		writeEntries(w, r.BroughtForward, r.Entries, &r.Total)
	case *report.LedgerReport:
		fmt.Fprintf(w, "%s %s\n", r.Account.Code, r.Account.Title)
		writeEntries(w, r.BroughtForward, r.Entries, &r.Total)
	case *report.JournalReport:
		writeJournal(w, r)
		warnings = r.Warnings
	case *report.MonthlyReport:
		writeMonths(w, r)
	case *report.TrialBalance:
		writeTrialBalance(w, r)
		warnings = r.Warnings
	case *report.IncomeStatement:
		writeSections(w, r.Sections)
		fmt.Fprintf(w, "\nNet income: %s\n", money(r.Net))
	case *report.BalanceSheet:
		writeSections(w, []report.Section{r.Assets, r.Liabilities, r.Equity})
		fmt.Fprintf(w, "\nTotal liabilities and equity: %s\n", money(r.LiabilitiesAndEquity))
		if !r.Balanced() {
			fmt.Fprintln(w, "The balance sheet does not balance.")
		}
		warnings = r.Warnings
	case *report.SearchResult:
		fmt.Fprintf(w, "Records matching %q\n", r.Query)
		writeEntries(w, nil, r.Entries, nil)
	}
	if res.Page != nil && res.Page.TotalPages > 1 {
		fmt.Fprintf(w, "\nPage %d of %d (%d rows)\n", res.Page.Page, res.Page.TotalPages, res.Page.TotalItems)
	}
	for _, warn := range warnings {
		fmt.Fprintf(w, "warning: %s\n", warn)
	}
	return nil
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func blankZero(d decimal.Decimal) string {
	if d.IsZero() {
		return ""
	}
	return money(d)
}

func entryFlags(e report.Entry) string {
	var flags []string
	if !e.IsBalanced {
		flags = append(flags, "unbalanced")
	}
	if e.HasOrderHole {
		flags = append(flags, "order-hole")
	}
	if e.IsPayable {
		flags = append(flags, "payable")
	}
	if e.IsExistingEquipment {
		flags = append(flags, "equipment")
	}
	return strings.Join(flags, ",")
}

func writeEntries(w io.Writer, bf *report.Entry, entries []report.Entry, total *report.Entry) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tREF\tACCOUNT\tSUMMARY\tDEBIT\tCREDIT\tBALANCE\tFLAGS")
	row := func(e report.Entry) {
		date := ""
		if !e.Date.IsZero() {
			date = e.Date.Format(model.DateFormat)
		}
		acct := ""
		if e.Account.Code != "" {
			acct = e.Account.Code + " " + e.Account.Title
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			date, e.Ref, acct, e.Summary, blankZero(e.Debit), blankZero(e.Credit), money(e.Balance), entryFlags(e))
	}
	if bf != nil {
		row(*bf)
	}
	for _, e := range entries {
		row(e)
	}
	if total != nil {
		row(*total)
	}
	_ = tw.Flush()
}

func writeJournal(w io.Writer, r *report.JournalReport) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tREF\tACCOUNT\tSUMMARY\tDEBIT\tCREDIT\tFLAGS")
	row := func(e report.Entry) {
		date := ""
		if !e.Date.IsZero() {
			date = e.Date.Format(model.DateFormat)
		}
		acct := ""
		if e.Account.Code != "" {
			acct = e.Account.Code + " " + e.Account.Title
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			date, e.Ref, acct, e.Summary, blankZero(e.Debit), blankZero(e.Credit), entryFlags(e))
	}
	for _, e := range r.BroughtForward {
		row(e)
	}
	for _, e := range r.Entries {
		row(e)
	}
	row(r.Total)
	_ = tw.Flush()
}

func writeMonths(w io.Writer, r *report.MonthlyReport) {
	fmt.Fprintf(w, "%s %s\n", r.Account.Code, r.Account.Title)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "MONTH\tDEBIT\tCREDIT\tBALANCE\tCUMULATIVE\t")
	fmt.Fprintf(tw, "Brought forward\t\t\t\t%s\t\n", money(r.BroughtForward))
	for _, m := range r.Months {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t\n",
			m.Month.Format("2006-01"), money(m.Debit), money(m.Credit), money(m.Balance), money(m.Cumulative))
	}
	fmt.Fprintf(tw, "Total\t%s\t%s\t%s\t%s\t\n",
		money(r.Total.Debit), money(r.Total.Credit), money(r.Total.Balance), money(r.Total.Cumulative))
	_ = tw.Flush()
}

func writeTrialBalance(w io.Writer, r *report.TrialBalance) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ACCOUNT\tDEBIT\tCREDIT")
	for _, row := range r.Rows {
		fmt.Fprintf(tw, "%s %s\t%s\t%s\n", row.Account.Code, row.Account.Title, blankZero(row.Debit), blankZero(row.Credit))
	}
	fmt.Fprintf(tw, "Total\t%s\t%s\n", money(r.Total.Debit), money(r.Total.Credit))
	_ = tw.Flush()
}

func writeSections(w io.Writer, sections []report.Section) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, s := range sections {
		fmt.Fprintf(tw, "%s %s\t\n", s.Code, s.Title)
		for _, g := range s.Groups {
			fmt.Fprintf(tw, "  %s %s\t\n", g.Code, g.Title)
			for _, l := range g.Accounts {
				title := l.Account.Title
				if l.IsParentAndInUse {
					title += " (own records)"
				}
				fmt.Fprintf(tw, "    %s %s\t%s\n", l.Account.Code, title, money(l.Amount))
			}
			fmt.Fprintf(tw, "  Total %s\t%s\n", g.Title, money(g.Total))
		}
		fmt.Fprintf(tw, "Total %s\t%s\n", s.Title, money(s.Total))
		if s.Cumulative != nil {
			fmt.Fprintf(tw, "%s\t%s\n", s.Cumulative.Title, money(s.Cumulative.Amount))
		}
	}
	_ = tw.Flush()
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
