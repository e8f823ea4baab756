package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Lorent-Bloom/lorentbloom/backend/config"
)

func newContractCommand(loaded func() *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "contract",
		Short: "Inspect and repair order contracts",
	}

	var locale string
	regenerate := &cobra.Command{
		Use:   "regenerate <order-number>",
		Short: "Re-render and re-upload an order's contract in its current signing state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			a, err := newApp(ctx, loaded())
			if err != nil {
				return err
			}
			defer a.close()

			doc, err := a.signer.RegenerateContract(ctx, args[0], locale)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", doc.OrderID, doc.Status, doc.BestPath())
			return nil
		},
	}
	regenerate.Flags().StringVar(&locale, "locale", "", "contract locale (defaults to contract.default_locale)")

	url := &cobra.Command{
		Use:   "url <order-number>",
		Short: "Print a presigned link to an order's most complete contract",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			a, err := newApp(ctx, loaded())
			if err != nil {
				return err
			}
			defer a.close()

			link, status, err := a.signer.GetContractPDFURL(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", status, link)
			return nil
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List contract documents with the object link of their most complete artifact",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := commandContext(cmd)
			a, err := newApp(ctx, loaded())
			if err != nil {
				return err
			}
			defer a.close()

			docs, err := a.docs.ListDocuments(ctx)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ORDER\tSTATUS\tVERSION\tOBJECT")
			for _, doc := range docs {
				object := "-"
				if path := doc.BestPath(); path != "" {
					object = a.storage.PublicURL(path)
				}
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", doc.OrderID, doc.Status, doc.Version, object)
			}
			return w.Flush()
		},
	}

	cmd.AddCommand(regenerate, url, list)
	return cmd
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
