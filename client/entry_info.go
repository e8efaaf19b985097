package client

import (
	"context"
	"time"

	"github.com/xxxsen/davkit/davpath"
	"github.com/xxxsen/davkit/proto"
)

// EntryInfo is the directory listing view over one resource entry, built
// from the standard DAV: properties.
type EntryInfo struct {
	Path        string
	Name        string
	IsDir       bool
	Size        int64
	ModTime     time.Time
	CreateTime  time.Time
	ETag        string
	ContentType string
}

var listProps = []proto.PropName{
	proto.PropDisplayName,
	proto.PropResourceType,
	proto.PropContentLength,
	proto.PropContentType,
	proto.PropLastModified,
	proto.PropCreationDate,
	proto.PropEtag,
}

// ReadDir lists the immediate children of the collection at location.
func (c *Client) ReadDir(ctx context.Context, location string) ([]*EntryInfo, error) {
	u, err := c.resolve(ensureCollection(location))
	if err != nil {
		return nil, err
	}
	ms, err := c.PropFind(ctx, ensureCollection(location), proto.DepthOne, listProps...)
	if err != nil {
		return nil, err
	}
	self := u.Path
	rs := make([]*EntryInfo, 0, len(ms.Entries))
	for i := range ms.Entries {
		e := &ms.Entries[i]
		if samePath(e.Path, self) {
			continue
		}
		rs = append(rs, newEntryInfo(e))
	}
	return rs, nil
}

// Stat fetches the standard properties of one resource.
func (c *Client) Stat(ctx context.Context, location string) (*EntryInfo, error) {
	ms, err := c.PropFind(ctx, location, proto.DepthZero, listProps...)
	if err != nil {
		return nil, err
	}
	return newEntryInfo(&ms.Entries[0]), nil
}

func newEntryInfo(e *proto.ResourceEntry) *EntryInfo {
	info := &EntryInfo{
		Path:  e.Path,
		Name:  davpath.Base(e.Path),
		IsDir: e.IsCollection(),
	}
	for i := range e.Props {
		p := &e.Props[i]
		if !p.IsSuccess() || p.Value.Kind != proto.ValueTyped {
			continue
		}
		tv := p.Value.Typed
		switch p.Name {
		case proto.PropContentLength:
			info.Size = tv.Int
		case proto.PropLastModified:
			info.ModTime = tv.Time
		case proto.PropCreationDate:
			info.CreateTime = tv.Time
		case proto.PropEtag:
			info.ETag = tv.Text
		case proto.PropContentType:
			info.ContentType = tv.Text
		case proto.PropResourceType:
			info.IsDir = tv.Collection
		}
	}
	return info
}

func samePath(a string, b string) bool {
	return trimSlash(a) == trimSlash(b)
}

func trimSlash(p string) string {
	if len(p) > 1 && p[len(p)-1] == '/' {
		return p[:len(p)-1]
	}
	return p
}
