package cmd

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

type statArgs struct {
	path string
}

func NewStatCmd(c *Context) *cobra.Command {
	args := &statArgs{}
	ctx := context.Background()
	subc := &cobra.Command{
		Use:   "stat",
		Short: "Show properties of a remote resource",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return onRunStat(ctx, c, args)
		},
	}
	subc.PersistentFlags().StringVarP(&args.path, "path", "p", "", "remote resource path")
	return subc
}

func onRunStat(ctx context.Context, c *Context, args *statArgs) error {
	if len(args.path) == 0 {
		return fmt.Errorf("no path found")
	}
	info, err := c.Client.Stat(ctx, args.path)
	if err != nil {
		return fmt.Errorf("stat failed, path:%s, err:%w", args.path, err)
	}
	fmt.Printf("path: %s\n", info.Path)
	fmt.Printf("name: %s\n", info.Name)
	fmt.Printf("dir: %v\n", info.IsDir)
	if !info.IsDir {
		fmt.Printf("size: %s (%d)\n", humanize.IBytes(uint64(info.Size)), info.Size)
		fmt.Printf("content type: %s\n", info.ContentType)
	}
	if !info.ModTime.IsZero() {
		fmt.Printf("modified: %s\n", info.ModTime)
	}
	if !info.CreateTime.IsZero() {
		fmt.Printf("created: %s\n", info.CreateTime)
	}
	if len(info.ETag) != 0 {
		fmt.Printf("etag: %s\n", info.ETag)
	}
	return nil
}

func init() {
	register(NewStatCmd)
}
