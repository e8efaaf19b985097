package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/xxxsen/davkit/proto"

	"github.com/spf13/cobra"
)

type propsetArgs struct {
	path    string
	sets    []string
	removes []string
}

func NewPropsetCmd(c *Context) *cobra.Command {
	args := &propsetArgs{}
	ctx := context.Background()
	subc := &cobra.Command{
		Use:   "propset",
		Short: "Set or remove properties on a remote resource",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return onRunPropset(ctx, c, args)
		},
	}
	subc.PersistentFlags().StringVarP(&args.path, "path", "p", "", "remote resource path")
	subc.PersistentFlags().StringSliceVar(&args.sets, "set", nil, "properties to set as name=value")
	subc.PersistentFlags().StringSliceVar(&args.removes, "remove", nil, "properties to remove")
	return subc
}

func onRunPropset(ctx context.Context, c *Context, args *propsetArgs) error {
	if len(args.path) == 0 {
		return fmt.Errorf("no path found")
	}
	if len(args.sets) == 0 && len(args.removes) == 0 {
		return fmt.Errorf("nothing to set or remove")
	}
	ops := make([]proto.PatchOp, 0, len(args.sets)+len(args.removes))
	for _, s := range args.sets {
		idx := strings.Index(s, "=")
		if idx < 0 {
			return fmt.Errorf("bad set expression, expect name=value, got:%s", s)
		}
		name, err := parsePropName(s[:idx])
		if err != nil {
			return err
		}
		ops = append(ops, proto.PatchOp{Op: proto.PropSet, Name: name, Text: s[idx+1:]})
	}
	for _, r := range args.removes {
		name, err := parsePropName(r)
		if err != nil {
			return err
		}
		ops = append(ops, proto.PatchOp{Op: proto.PropRemove, Name: name})
	}
	ms, err := c.Client.PropPatch(ctx, args.path, ops)
	if err != nil {
		return fmt.Errorf("propset failed, path:%s, err:%w", args.path, err)
	}
	for _, ent := range ms.Entries {
		for _, pr := range ent.Props {
			state := "ok"
			if !pr.IsSuccess() {
				state = fmt.Sprintf("failed [%d]", pr.Status)
			}
			fmt.Printf("%s: %s\n", pr.Name, state)
		}
	}
	return nil
}

func init() {
	register(NewPropsetCmd)
}
