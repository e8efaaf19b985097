package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

type mkdirArgs struct {
	path string
}

func NewMkdirCmd(c *Context) *cobra.Command {
	args := &mkdirArgs{}
	ctx := context.Background()
	subc := &cobra.Command{
		Use:   "mkdir",
		Short: "Create a remote collection",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return onRunMkdir(ctx, c, args)
		},
	}
	subc.PersistentFlags().StringVarP(&args.path, "path", "p", "", "remote collection path")
	return subc
}

func onRunMkdir(ctx context.Context, c *Context, args *mkdirArgs) error {
	if len(args.path) == 0 {
		return fmt.Errorf("no path found")
	}
	if err := c.Client.Mkcol(ctx, args.path); err != nil {
		return fmt.Errorf("mkdir failed, path:%s, err:%w", args.path, err)
	}
	fmt.Printf("created: %s\n", args.path)
	return nil
}

func init() {
	register(NewMkdirCmd)
}
