package cmd

import (
	"context"
	"fmt"
	"os"
	"path"
	"time"

	"github.com/xxxsen/davkit/client"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/retry"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type putArgs struct {
	files     []string
	dst       string
	lockToken string
	ctype     string
}

func NewPutCmd(c *Context) *cobra.Command {
	args := &putArgs{}
	ctx := context.Background()
	subc := &cobra.Command{
		Use:   "put",
		Short: "Upload local files to a remote collection",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return onRunPut(ctx, c, args)
		},
	}
	subc.PersistentFlags().StringSliceVarP(&args.files, "file", "f", nil, "local files to upload")
	subc.PersistentFlags().StringVarP(&args.dst, "dst", "d", "/", "remote collection path")
	subc.PersistentFlags().StringVar(&args.lockToken, "lock-token", "", "lock token for locked targets")
	subc.PersistentFlags().StringVar(&args.ctype, "content-type", "", "content type override")
	return subc
}

func uploadOne(ctx context.Context, c *Context, local string, remote string, opts []client.CallOption) (string, error) {
	var etag string
	err := retry.RetryDo(ctx, 3, 2*time.Second, func(ctx context.Context) error {
		f, err := os.Open(local)
		if err != nil {
			return err
		}
		defer f.Close()
		info, err := f.Stat()
		if err != nil {
			return err
		}
		etag, err = c.Client.Put(ctx, remote, f, info.Size(), opts...)
		if err != nil {
			logutil.GetLogger(ctx).Error("upload failed, wait retry", zap.Error(err), zap.String("path", remote))
			return err
		}
		return nil
	})
	return etag, err
}

func onRunPut(ctx context.Context, c *Context, args *putArgs) error {
	if len(args.files) == 0 {
		return fmt.Errorf("no upload file found")
	}
	var opts []client.CallOption
	if len(args.lockToken) != 0 {
		opts = append(opts, client.WithLockToken(args.lockToken))
	}
	if len(args.ctype) != 0 {
		opts = append(opts, client.WithContentType(args.ctype))
	}
	start := time.Now()
	eg, subctx := errgroup.WithContext(ctx)
	eg.SetLimit(c.Config.Thread)
	for _, f := range args.files {
		local := f
		remote := path.Join(args.dst, path.Base(local))
		eg.Go(func() error {
			st := time.Now()
			info, err := os.Stat(local)
			if err != nil {
				return err
			}
			etag, err := uploadOne(subctx, c, local, remote, opts)
			if err != nil {
				return fmt.Errorf("upload failed, file:%s, err:%w", local, err)
			}
			logutil.GetLogger(subctx).Info("upload file succ",
				zap.String("path", remote), zap.String("size", humanize.IBytes(uint64(info.Size()))),
				zap.String("etag", etag), zap.Duration("cost", time.Since(st)))
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}
	logutil.GetLogger(ctx).Info("upload finish",
		zap.Int("count", len(args.files)), zap.Duration("cost", time.Since(start)))
	return nil
}

func init() {
	register(NewPutCmd)
}
