package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

type cpArgs struct {
	src       string
	dst       string
	overwrite bool
}

func NewCpCmd(c *Context) *cobra.Command {
	args := &cpArgs{}
	ctx := context.Background()
	subc := &cobra.Command{
		Use:   "cp",
		Short: "Copy a remote resource",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return onRunCp(ctx, c, args)
		},
	}
	subc.PersistentFlags().StringVarP(&args.src, "src", "s", "", "source path")
	subc.PersistentFlags().StringVarP(&args.dst, "dst", "d", "", "destination path")
	subc.PersistentFlags().BoolVar(&args.overwrite, "overwrite", false, "overwrite existing destination")
	return subc
}

func onRunCp(ctx context.Context, c *Context, args *cpArgs) error {
	if len(args.src) == 0 || len(args.dst) == 0 {
		return fmt.Errorf("both src and dst are required")
	}
	if err := c.Client.Copy(ctx, args.src, args.dst, args.overwrite); err != nil {
		return fmt.Errorf("cp failed, src:%s, dst:%s, err:%w", args.src, args.dst, err)
	}
	fmt.Printf("copied: %s -> %s\n", args.src, args.dst)
	return nil
}

func init() {
	register(NewCpCmd)
}
