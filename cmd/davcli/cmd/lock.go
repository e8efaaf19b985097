package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/xxxsen/davkit/proto"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

type lockArgs struct {
	path    string
	shared  bool
	timeout time.Duration
	owner   string
	refresh string
}

func NewLockCmd(c *Context) *cobra.Command {
	args := &lockArgs{}
	ctx := context.Background()
	subc := &cobra.Command{
		Use:   "lock",
		Short: "Lock a remote resource",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return onRunLock(ctx, c, args)
		},
	}
	subc.PersistentFlags().StringVarP(&args.path, "path", "p", "", "remote resource path")
	subc.PersistentFlags().BoolVar(&args.shared, "shared", false, "request a shared lock instead of exclusive")
	subc.PersistentFlags().DurationVar(&args.timeout, "timeout", 0, "requested lock timeout, 0 for server default")
	subc.PersistentFlags().StringVar(&args.owner, "owner", "", "lock owner, defaults to a generated urn:uuid")
	subc.PersistentFlags().StringVar(&args.refresh, "refresh", "", "refresh an existing lock with this token")
	return subc
}

func onRunLock(ctx context.Context, c *Context, args *lockArgs) error {
	if len(args.path) == 0 {
		return fmt.Errorf("no path found")
	}
	if len(args.refresh) != 0 {
		lk, err := c.Client.RefreshLock(ctx, args.path, args.refresh, args.timeout)
		if err != nil {
			return fmt.Errorf("refresh lock failed, path:%s, err:%w", args.path, err)
		}
		fmt.Printf("token: %s\n", lk.Token)
		return nil
	}
	owner := args.owner
	if len(owner) == 0 {
		owner = "urn:uuid:" + uuid.NewString()
	}
	scope := proto.LockExclusive
	if args.shared {
		scope = proto.LockShared
	}
	lk, err := c.Client.Lock(ctx, args.path, &proto.LockRequest{
		Scope:   scope,
		Owner:   owner,
		Depth:   proto.DepthZero,
		Timeout: args.timeout,
	})
	if err != nil {
		return fmt.Errorf("lock failed, path:%s, err:%w", args.path, err)
	}
	fmt.Printf("token: %s\n", lk.Token)
	return nil
}

func init() {
	register(NewLockCmd)
}
