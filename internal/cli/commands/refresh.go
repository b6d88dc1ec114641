package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// NewRefreshCmd creates the refresh command
func NewRefreshCmd() *cobra.Command {
	var serverAlias string

	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Rotate the stored access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRefresh(serverAlias)
		},
	}

	cmd.Flags().StringVar(&serverAlias, "server", "", "Server alias from storefront.json")

	return cmd
}

func runRefresh(serverAlias string, opts ...Option) error {
	d, err := resolveDeps(serverAlias, opts...)
	if err != nil {
		return err
	}

	res := d.newSession().Refresh(context.Background())
	if !res.OK {
		return fmt.Errorf("refresh failed: %s", res.Error)
	}

	fmt.Println("✓ Session refreshed")
	return nil
}
