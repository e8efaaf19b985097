package cmd

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/xxxsen/davkit/utils"

	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/retry"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type getArgs struct {
	paths []string
	out   string
}

func NewGetCmd(c *Context) *cobra.Command {
	args := &getArgs{}
	ctx := context.Background()
	subc := &cobra.Command{
		Use:   "get",
		Short: "Download remote files",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return onRunGet(ctx, c, args)
		},
	}
	subc.PersistentFlags().StringSliceVarP(&args.paths, "path", "p", nil, "remote file paths")
	subc.PersistentFlags().StringVarP(&args.out, "out", "o", ".", "local output directory")
	return subc
}

func downloadOne(ctx context.Context, c *Context, remote string, local string) error {
	return retry.RetryDo(ctx, 3, 2*time.Second, func(ctx context.Context) error {
		body, err := c.Client.GetStream(ctx, remote)
		if err != nil {
			logutil.GetLogger(ctx).Error("download failed, wait retry", zap.Error(err), zap.String("path", remote))
			return err
		}
		defer body.Close()
		return utils.SafeSaveToFile(local, body)
	})
}

func onRunGet(ctx context.Context, c *Context, args *getArgs) error {
	if len(args.paths) == 0 {
		return fmt.Errorf("no download path found")
	}
	start := time.Now()
	eg, subctx := errgroup.WithContext(ctx)
	eg.SetLimit(c.Config.Thread)
	for _, p := range args.paths {
		remote := p
		local := path.Join(args.out, path.Base(remote))
		eg.Go(func() error {
			st := time.Now()
			if err := downloadOne(subctx, c, remote, local); err != nil {
				return fmt.Errorf("download failed, path:%s, err:%w", remote, err)
			}
			logutil.GetLogger(subctx).Info("download file succ",
				zap.String("path", remote), zap.String("local", local), zap.Duration("cost", time.Since(st)))
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}
	logutil.GetLogger(ctx).Info("download finish",
		zap.Int("count", len(args.paths)), zap.Duration("cost", time.Since(start)))
	return nil
}

func init() {
	register(NewGetCmd)
}
