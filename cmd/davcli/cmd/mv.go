package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

type mvArgs struct {
	src       string
	dst       string
	overwrite bool
}

func NewMvCmd(c *Context) *cobra.Command {
	args := &mvArgs{}
	ctx := context.Background()
	subc := &cobra.Command{
		Use:   "mv",
		Short: "Move a remote resource",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return onRunMv(ctx, c, args)
		},
	}
	subc.PersistentFlags().StringVarP(&args.src, "src", "s", "", "source path")
	subc.PersistentFlags().StringVarP(&args.dst, "dst", "d", "", "destination path")
	subc.PersistentFlags().BoolVar(&args.overwrite, "overwrite", false, "overwrite existing destination")
	return subc
}

func onRunMv(ctx context.Context, c *Context, args *mvArgs) error {
	if len(args.src) == 0 || len(args.dst) == 0 {
		return fmt.Errorf("both src and dst are required")
	}
	if err := c.Client.Move(ctx, args.src, args.dst, args.overwrite); err != nil {
		return fmt.Errorf("mv failed, src:%s, dst:%s, err:%w", args.src, args.dst, err)
	}
	fmt.Printf("moved: %s -> %s\n", args.src, args.dst)
	return nil
}

func init() {
	register(NewMvCmd)
}
