package cmd

import (
	"testing"
	"time"

	"github.com/xxxsen/davkit/proto"

	"github.com/stretchr/testify/assert"
)

func TestParsePropName(t *testing.T) {
	n, err := parsePropName("{urn:example}color")
	assert.NoError(t, err)
	assert.Equal(t, proto.NewPropName("urn:example", "color"), n)
	n, err = parsePropName("getetag")
	assert.NoError(t, err)
	assert.Equal(t, proto.DAVProp("getetag"), n)
	_, err = parsePropName("{urn:example")
	assert.Error(t, err)
	_, err = parsePropName("{urn:example}")
	assert.Error(t, err)
}

func TestFormatPropValue(t *testing.T) {
	assert.Equal(t, "(empty)", formatPropValue(proto.PropValue{Kind: proto.ValueAbsent}))
	assert.Equal(t, "<x/>", formatPropValue(proto.PropValue{Kind: proto.ValueRaw, Raw: []byte("<x/>")}))
	assert.Equal(t, "42", formatPropValue(proto.PropValue{
		Kind:  proto.ValueTyped,
		Typed: proto.TypedValue{Kind: proto.TypedInt, Int: 42},
	}))
	assert.Equal(t, "collection", formatPropValue(proto.PropValue{
		Kind:  proto.ValueTyped,
		Typed: proto.TypedValue{Kind: proto.TypedResourceType, Collection: true},
	}))
	assert.Equal(t, "resource", formatPropValue(proto.PropValue{
		Kind:  proto.ValueTyped,
		Typed: proto.TypedValue{Kind: proto.TypedResourceType},
	}))
	assert.Equal(t, "1 active lock(s)", formatPropValue(proto.PropValue{
		Kind:  proto.ValueTyped,
		Typed: proto.TypedValue{Kind: proto.TypedLocks, Locks: []proto.ActiveLock{{}}},
	}))
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, ts.String(), formatPropValue(proto.PropValue{
		Kind:  proto.ValueTyped,
		Typed: proto.TypedValue{Kind: proto.TypedTime, Time: ts},
	}))
	assert.Equal(t, "docs", formatPropValue(proto.PropValue{
		Kind:  proto.ValueTyped,
		Typed: proto.TypedValue{Kind: proto.TypedText, Text: "docs"},
	}))
}
