package proto

import (
	"fmt"
	"time"
)

const (
	// NamespaceDAV is the namespace of the standard WebDAV properties.
	NamespaceDAV = "DAV:"
)

// Depth selects how deep a PROPFIND/LOCK applies.
type Depth int

const (
	DepthZero Depth = iota
	DepthOne
	DepthInfinity
)

func (d Depth) String() string {
	switch d {
	case DepthZero:
		return "0"
	case DepthOne:
		return "1"
	case DepthInfinity:
		return "infinity"
	}
	return "0"
}

// PropName is a namespace qualified property name. HasSpace distinguishes
// "no namespace at all" from a namespace that happens to be the empty string.
type PropName struct {
	Space    string
	HasSpace bool
	Local    string
}

func NewPropName(space string, local string) PropName {
	return PropName{Space: space, HasSpace: true, Local: local}
}

// NewLocalPropName builds a property name without any namespace.
func NewLocalPropName(local string) PropName {
	return PropName{Local: local}
}

// DAVProp builds a name in the DAV: namespace.
func DAVProp(local string) PropName {
	return NewPropName(NamespaceDAV, local)
}

func (p PropName) String() string {
	if !p.HasSpace {
		return p.Local
	}
	return fmt.Sprintf("{%s}%s", p.Space, p.Local)
}

// Well known DAV: property names.
var (
	PropDisplayName   = DAVProp("displayname")
	PropResourceType  = DAVProp("resourcetype")
	PropContentLength = DAVProp("getcontentlength")
	PropContentType   = DAVProp("getcontenttype")
	PropLastModified  = DAVProp("getlastmodified")
	PropCreationDate  = DAVProp("creationdate")
	PropEtag          = DAVProp("getetag")
	PropLockDiscovery = DAVProp("lockdiscovery")
)

type PropValueKind int

const (
	// ValueAbsent means the property was not requested or carried no value.
	ValueAbsent PropValueKind = iota
	// ValueRaw means the property content is preserved verbatim as inner xml.
	ValueRaw
	// ValueTyped means the raw content was additionally decoded into a
	// well known typed form.
	ValueTyped
)

type TypedKind int

const (
	TypedText TypedKind = iota
	TypedInt
	TypedTime
	TypedResourceType
	TypedLocks
)

// TypedValue holds the decode of a well known DAV: property. Only the field
// selected by Kind is meaningful.
type TypedValue struct {
	Kind       TypedKind
	Text       string
	Int        int64
	Time       time.Time
	Collection bool
	Locks      []ActiveLock
}

// PropValue is the value side of one property. Raw keeps the inner xml of
// the property element verbatim so unknown properties survive a
// propfind-then-proppatch round trip.
type PropValue struct {
	Kind  PropValueKind
	Raw   []byte
	Typed TypedValue
}

// PropResult is one property row inside a resource entry. Status is the
// http status that applies to this specific property.
type PropResult struct {
	Name   PropName
	Status int
	Value  PropValue
}

func (p *PropResult) IsSuccess() bool {
	return p.Status >= 200 && p.Status < 300
}

// ResourceEntry is one response block of a multistatus body. Props keeps the
// server order. Status is only set for entries the server reported with a
// bare status and no propstat blocks (e.g. partial COPY/DELETE failures).
type ResourceEntry struct {
	Path   string
	Status int
	Props  []PropResult
}

// IsCollection reports whether the entry path follows the trailing slash
// collection convention or carries a collection resourcetype.
func (r *ResourceEntry) IsCollection() bool {
	if len(r.Path) > 1 && r.Path[len(r.Path)-1] == '/' {
		return true
	}
	if p, ok := r.Lookup(PropResourceType); ok && p.Value.Kind == ValueTyped {
		return p.Value.Typed.Collection
	}
	return false
}

// Lookup returns the property row for name, searching in server order.
func (r *ResourceEntry) Lookup(name PropName) (*PropResult, bool) {
	for i := range r.Props {
		if r.Props[i].Name == name {
			return &r.Props[i], true
		}
	}
	return nil, false
}

// Multistatus is the decoded form of a 207 body. Entries keep the order the
// server produced; the decoder never reorders or drops failed entries.
type Multistatus struct {
	Entries []ResourceEntry
}

// Lookup returns the entry whose path equals p, ignoring the trailing slash
// convention difference.
func (m *Multistatus) Lookup(p string) (*ResourceEntry, bool) {
	for i := range m.Entries {
		if trimSlash(m.Entries[i].Path) == trimSlash(p) {
			return &m.Entries[i], true
		}
	}
	return nil, false
}

func trimSlash(p string) string {
	if len(p) > 1 && p[len(p)-1] == '/' {
		return p[:len(p)-1]
	}
	return p
}

type LockScope int

const (
	LockExclusive LockScope = iota
	LockShared
)

// ActiveLock is the decoded form of one activelock block inside a
// lockdiscovery property or a LOCK response.
type ActiveLock struct {
	Scope   LockScope
	Depth   Depth
	Owner   string
	Timeout string
	Token   string
	Root    string
}

// LockResult is what a successful LOCK exchange produced. Token is also
// surfaced separately because servers must echo it in the Lock-Token header.
type LockResult struct {
	Token string
	Lock  ActiveLock
}
