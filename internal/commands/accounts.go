package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/imacat/mia-accounting-django-sub000/internal/accounts"
	"github.com/imacat/mia-accounting-django-sub000/internal/model"
)

func newAccountsCommand(g *globals) *cobra.Command {
	accountsCmd := &cobra.Command{
		Use:   "accounts",
		Short: "Manage the chart of accounts",
	}
	accountsCmd.AddCommand(
		newAccountsListCommand(g),
		newAccountsAddCommand(g),
		newAccountsImportCommand(g),
		newAccountsExportCommand(g),
		newAccountsDeleteCommand(g),
		newAccountsTitleCommand(g),
	)
	return accountsCmd
}

func newAccountsListCommand(g *globals) *cobra.Command {
	var under string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List accounts with their usage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.run(cmd, func(ctx context.Context, a *app) error {
				return listAccounts(ctx, cmd.OutOrStdout(), a.accounts, under)
			})
		},
	}
	cmd.Flags().StringVar(&under, "under", "", "only list accounts under this code")
	return cmd
}

func listAccounts(ctx context.Context, out io.Writer, reg *accounts.Registry, under string) error {
	all, err := reg.List(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CODE\tTITLE\tPARENT\tUSAGE")
	for _, acct := range all {
		if under != "" && !strings.HasPrefix(acct.Code, under) {
			continue
		}
		usage, err := accountUsage(ctx, reg, acct)
		if err != nil {
			return err
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", acct.Code, acct.Title, model.ParentCode(acct.Code), usage)
	}
	return tw.Flush()
}

func accountUsage(ctx context.Context, reg *accounts.Registry, acct model.Account) (string, error) {
	pure, err := reg.IsPureParent(ctx, acct)
	if err != nil {
		return "", err
	}
	if pure {
		return "parent", nil
	}
	both, err := reg.IsParentAndInUse(ctx, acct)
	if err != nil {
		return "", err
	}
	if both {
		return "parent, in use", nil
	}
	inUse, err := reg.IsInUse(ctx, acct)
	if err != nil {
		return "", err
	}
	if inUse {
		return "in use", nil
	}
	return "", nil
}

func newAccountsAddCommand(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <code> <title>",
		Short: "Create an account, or retitle an existing one",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.run(cmd, func(ctx context.Context, a *app) error {
				acct := model.Account{Code: args[0], Title: args[1]}
				if existing, err := a.accounts.Resolve(ctx, args[0]); err == nil {
					acct.ID = existing.ID
				}
				saved, err := a.accounts.Save(ctx, acct)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Saved account %s %s\n", saved.Code, saved.Title)
				return nil
			})
		},
	}
	return cmd
}

func newAccountsImportCommand(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Import accounts from a CSV file (code,title,parent_code)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening %s: %w", args[0], err)
			}
			defer f.Close()

			chart, err := accounts.ReadAccounts(f)
			if err != nil {
				return err
			}
			return g.run(cmd, func(ctx context.Context, a *app) error {
				created, err := a.accounts.Import(ctx, chart)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %d accounts (%d new)\n", len(chart), created)
				return nil
			})
		},
	}
	return cmd
}

func newAccountsExportCommand(g *globals) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the chart of accounts as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.run(cmd, func(ctx context.Context, a *app) error {
				all, err := a.accounts.List(ctx)
				if err != nil {
					return err
				}
				if output == "" || output == "-" {
					return accounts.WriteAccounts(cmd.OutOrStdout(), all)
				}
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("creating %s: %w", output, err)
				}
				if err := accounts.WriteAccounts(f, all); err != nil {
					f.Close()
					return err
				}
				return f.Close()
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to this file instead of stdout")
	return cmd
}

func newAccountsDeleteCommand(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <code>",
		Short: "Delete an unused account without sub-accounts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.run(cmd, func(ctx context.Context, a *app) error {
				if err := a.accounts.Delete(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted account %s\n", args[0])
				return nil
			})
		},
	}
	return cmd
}

func newAccountsTitleCommand(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "title <code> [<locale> <title>]",
		Short: "Show or set the localized titles of an account",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 && len(args) != 3 {
				return fmt.Errorf("accepts 1 or 3 args, received %d", len(args))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.run(cmd, func(ctx context.Context, a *app) error {
				if len(args) == 3 {
					return a.accounts.SetTitle(ctx, args[0], args[1], args[2])
				}
				titles, err := a.accounts.Titles(ctx, args[0])
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				for _, locale := range sortedKeys(titles) {
					fmt.Fprintf(tw, "%s\t%s\n", locale, titles[locale])
				}
				return tw.Flush()
			})
		},
	}
	return cmd
}
