package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

type unlockArgs struct {
	path  string
	token string
}

func NewUnlockCmd(c *Context) *cobra.Command {
	args := &unlockArgs{}
	ctx := context.Background()
	subc := &cobra.Command{
		Use:   "unlock",
		Short: "Release a lock on a remote resource",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return onRunUnlock(ctx, c, args)
		},
	}
	subc.PersistentFlags().StringVarP(&args.path, "path", "p", "", "remote resource path")
	subc.PersistentFlags().StringVarP(&args.token, "token", "t", "", "lock token")
	return subc
}

func onRunUnlock(ctx context.Context, c *Context, args *unlockArgs) error {
	if len(args.path) == 0 || len(args.token) == 0 {
		return fmt.Errorf("both path and token are required")
	}
	if err := c.Client.Unlock(ctx, args.path, args.token); err != nil {
		return fmt.Errorf("unlock failed, path:%s, err:%w", args.path, err)
	}
	fmt.Printf("unlocked: %s\n", args.path)
	return nil
}

func init() {
	register(NewUnlockCmd)
}
