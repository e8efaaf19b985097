package cmd

import (
	"context"
	"fmt"

	"github.com/xxxsen/davkit/client"

	"github.com/spf13/cobra"
)

type rmArgs struct {
	path      string
	lockToken string
}

func NewRmCmd(c *Context) *cobra.Command {
	args := &rmArgs{}
	ctx := context.Background()
	subc := &cobra.Command{
		Use:   "rm",
		Short: "Delete a remote resource",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return onRunRm(ctx, c, args)
		},
	}
	subc.PersistentFlags().StringVarP(&args.path, "path", "p", "", "remote resource path")
	subc.PersistentFlags().StringVar(&args.lockToken, "lock-token", "", "lock token for locked targets")
	return subc
}

func onRunRm(ctx context.Context, c *Context, args *rmArgs) error {
	if len(args.path) == 0 {
		return fmt.Errorf("no path found")
	}
	var opts []client.CallOption
	if len(args.lockToken) != 0 {
		opts = append(opts, client.WithLockToken(args.lockToken))
	}
	if err := c.Client.Delete(ctx, args.path, opts...); err != nil {
		return fmt.Errorf("rm failed, path:%s, err:%w", args.path, err)
	}
	fmt.Printf("deleted: %s\n", args.path)
	return nil
}

func init() {
	register(NewRmCmd)
}
