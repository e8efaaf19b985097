package cmd

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

type lsArgs struct {
	path string
}

func NewLsCmd(c *Context) *cobra.Command {
	args := &lsArgs{}
	ctx := context.Background()
	subc := &cobra.Command{
		Use:   "ls",
		Short: "List a remote collection",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return onRunLs(ctx, c, args)
		},
	}
	subc.PersistentFlags().StringVarP(&args.path, "path", "p", "/", "remote collection path")
	return subc
}

func onRunLs(ctx context.Context, c *Context, args *lsArgs) error {
	ents, err := c.Client.ReadDir(ctx, args.path)
	if err != nil {
		return fmt.Errorf("list dir failed, path:%s, err:%w", args.path, err)
	}
	for _, ent := range ents {
		kind := "-"
		size := humanize.IBytes(uint64(ent.Size))
		if ent.IsDir {
			kind = "d"
			size = "-"
		}
		mtime := "-"
		if !ent.ModTime.IsZero() {
			mtime = ent.ModTime.Format("2006-01-02 15:04:05")
		}
		fmt.Printf("%s %10s %s %s\n", kind, size, mtime, ent.Name)
	}
	return nil
}

func init() {
	register(NewLsCmd)
}
