package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/xxxsen/davkit/proto"

	"github.com/spf13/cobra"
)

type propgetArgs struct {
	path  string
	props []string
	depth string
	names bool
}

func NewPropgetCmd(c *Context) *cobra.Command {
	args := &propgetArgs{}
	ctx := context.Background()
	subc := &cobra.Command{
		Use:   "propget",
		Short: "Query properties of remote resources",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return onRunPropget(ctx, c, args)
		},
	}
	subc.PersistentFlags().StringVarP(&args.path, "path", "p", "", "remote resource path")
	subc.PersistentFlags().StringSliceVar(&args.props, "prop", nil, "properties to fetch, {ns}name or bare name for DAV:, empty for allprop")
	subc.PersistentFlags().StringVar(&args.depth, "depth", "0", "propfind depth: 0, 1 or infinity")
	subc.PersistentFlags().BoolVar(&args.names, "names", false, "list property names only")
	return subc
}

// parsePropName accepts clark notation ("{urn:ns}name") or a bare name
// which is taken from the DAV: namespace.
func parsePropName(s string) (proto.PropName, error) {
	if strings.HasPrefix(s, "{") {
		idx := strings.Index(s, "}")
		if idx < 0 || idx == len(s)-1 {
			return proto.PropName{}, fmt.Errorf("bad property name:%s", s)
		}
		return proto.NewPropName(s[1:idx], s[idx+1:]), nil
	}
	return proto.DAVProp(s), nil
}

func onRunPropget(ctx context.Context, c *Context, args *propgetArgs) error {
	if len(args.path) == 0 {
		return fmt.Errorf("no path found")
	}
	depth, err := proto.ParseDepth(args.depth)
	if err != nil {
		return err
	}
	names := make([]proto.PropName, 0, len(args.props))
	for _, p := range args.props {
		name, err := parsePropName(p)
		if err != nil {
			return err
		}
		names = append(names, name)
	}
	var ms *proto.Multistatus
	if args.names {
		ms, err = c.Client.PropNames(ctx, args.path, depth)
	} else {
		ms, err = c.Client.PropFind(ctx, args.path, depth, names...)
	}
	if err != nil {
		return fmt.Errorf("propget failed, path:%s, err:%w", args.path, err)
	}
	for _, ent := range ms.Entries {
		fmt.Printf("%s\n", ent.Path)
		for _, pr := range ent.Props {
			if args.names {
				fmt.Printf("  %s\n", pr.Name)
				continue
			}
			fmt.Printf("  %s [%d]: %s\n", pr.Name, pr.Status, formatPropValue(pr.Value))
		}
	}
	return nil
}

func formatPropValue(v proto.PropValue) string {
	switch v.Kind {
	case proto.ValueAbsent:
		return "(empty)"
	case proto.ValueTyped:
		return formatTypedValue(v.Typed)
	default:
		return string(v.Raw)
	}
}

func formatTypedValue(t proto.TypedValue) string {
	switch t.Kind {
	case proto.TypedInt:
		return fmt.Sprintf("%d", t.Int)
	case proto.TypedTime:
		return t.Time.String()
	case proto.TypedResourceType:
		if t.Collection {
			return "collection"
		}
		return "resource"
	case proto.TypedLocks:
		return fmt.Sprintf("%d active lock(s)", len(t.Locks))
	default:
		return t.Text
	}
}

func init() {
	register(NewPropgetCmd)
}
