package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/storefront-dev/storefront/internal/cli/catalog"
)

const defaultPageSize = 20

// NewProductsCmd creates the products command
func NewProductsCmd() *cobra.Command {
	var page, limit int
	var serverAlias string

	cmd := &cobra.Command{
		Use:     "products",
		Aliases: []string{"ls"},
		Short:   "List products in the store",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProducts(page, limit, serverAlias)
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "Page number")
	cmd.Flags().IntVar(&limit, "limit", defaultPageSize, "Products per page")
	cmd.Flags().StringVar(&serverAlias, "server", "", "Server alias from storefront.json")

	return cmd
}

func runProducts(page, limit int, serverAlias string, opts ...Option) error {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageSize
	}

	d, err := resolveDeps(serverAlias, opts...)
	if err != nil {
		return err
	}

	result, err := catalog.New(d.server.URL).List(context.Background(), limit, page)
	if err != nil {
		return err
	}

	if len(result.Results) == 0 {
		fmt.Println("No products found.")
		return nil
	}

	fmt.Printf("Products on %s (%s):\n\n", d.server.Alias, d.server.URL)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TITLE\tPRICE\tDESCRIPTION")
	fmt.Fprintln(w, "─────\t─────\t───────────")

	for _, product := range result.Results {
		fmt.Fprintf(w, "%s\t$%.2f\t%s\n",
			product.Title,
			product.UnitPrice,
			truncate(product.Description, 60),
		)
	}

	w.Flush()

	fmt.Printf("\nPage %d of %d (%d products)\n", page, result.TotalPages(limit), result.Count)

	return nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
