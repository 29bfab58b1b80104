package codec

import (
	"bytes"
	"encoding/binary"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agtree/ast"
	parseErrors "agtree/errors"
	"agtree/parser"
)

const sampleList = `! Title: Sample
[Adblock Plus 2.0; AdGuard]
!+ NOT_OPTIMIZED PLATFORM(windows)
!#if (adguard && !adguard_ext_safari)
!#include https://example.org/extra.txt
!#endif
! aglint "no-short-rules": ["warn", 2]
! aglint-disable rule-a -- legacy

127.0.0.1 example.org example.com # local
@@||example.org^$script,~third-party,domain=a.com|~b.com
[$path=/page]example.com##.ad
example.com##.ad:not(:matches-path(/page))
##body:style(padding: 0;)
#$#@media (min-width: 100px) { .ad { remove: true; } }
example.com##+js(set-constant, foo, 'a,b')
example.com#@#+js()
example.com#$#log 'hi'; abort-on-property-read foo
example.com#%#window.x = 1;
example.com$$script[tag-content="ad"]
example.com##`

func parseList(t *testing.T, locs, raws bool) *ast.FilterList {
	t.Helper()
	opts := parser.DefaultOptions()
	opts.IsLocIncluded = locs
	opts.IncludeRaws = raws
	list := parser.ParseFilterList(sampleList, opts)
	require.Len(t, list.Children, len(strings.Split(sampleList, "\n")))
	return list
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		locs bool
		raws bool
	}{
		{"plain", false, false},
		{"with locations", true, false},
		{"with raws", false, true},
		{"with both", true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list := parseList(t, tt.locs, tt.raws)

			data, err := Marshal(list, Options{IncludeLocations: tt.locs})
			require.NoError(t, err)

			got, err := UnmarshalFilterList(data)
			require.NoError(t, err)
			assert.Equal(t, list, got)
		})
	}
}

func TestRoundTrip_LocationsDropped(t *testing.T) {
	withLocs := parseList(t, true, false)
	data, err := Marshal(withLocs, Options{})
	require.NoError(t, err)

	got, err := UnmarshalFilterList(data)
	require.NoError(t, err)
	assert.Equal(t, parseList(t, false, false), got)
}

func TestRoundTrip_SingleNodes(t *testing.T) {
	nodes := []ast.Node{
		&ast.Value{Value: "x"},
		&ast.ConfigNode{Value: map[string]any{"a": []any{"warn", 2}, "b": true}},
		&ast.ParameterList{Children: []*ast.Value{{Value: "a"}, nil, {Value: "c"}}},
		&ast.ExpressionOperator{
			Operator: ast.OperatorNot,
			Left:     &ast.ExpressionVariable{Name: "adguard"},
		},
	}
	for _, n := range nodes {
		data, err := Marshal(n, Options{})
		require.NoError(t, err)
		got, err := Unmarshal(data)
		require.NoError(t, err)
		assert.Equal(t, n, got)
	}
}

func TestDeserialize_SchemaMismatch(t *testing.T) {
	data, err := Marshal(&ast.EmptyRule{}, Options{})
	require.NoError(t, err)
	binary.LittleEndian.PutUint32(data, SchemaVersion+1)

	_, err = Unmarshal(data)
	assert.ErrorIs(t, err, parseErrors.ErrSchemaMismatch)
}

func TestDeserialize_Corrupt(t *testing.T) {
	data, err := Marshal(parseList(t, true, true), Options{IncludeLocations: true})
	require.NoError(t, err)

	t.Run("truncated", func(t *testing.T) {
		for _, n := range []int{0, 3, 5, len(data) / 2, len(data) - 1} {
			_, err := Unmarshal(data[:n])
			assert.ErrorIs(t, err, parseErrors.ErrCorruptBuffer, "length %d", n)
		}
	})

	t.Run("unknown tag", func(t *testing.T) {
		bad := bytes.Clone(data)
		bad[5] = 0xff
		_, err := Unmarshal(bad)
		assert.ErrorIs(t, err, parseErrors.ErrCorruptBuffer)
	})

	t.Run("not a list", func(t *testing.T) {
		rule, err := Marshal(&ast.EmptyRule{}, Options{})
		require.NoError(t, err)
		_, err = UnmarshalFilterList(rule)
		assert.ErrorIs(t, err, parseErrors.ErrCorruptBuffer)
	})
}

func TestSerialize_Unsupported(t *testing.T) {
	_, err := Marshal(&ast.SelectorList{}, Options{})
	assert.ErrorIs(t, err, parseErrors.ErrUnsupportedNode)
}

func TestOutputByteBuffer_Chunks(t *testing.T) {
	out := NewOutputByteBuffer()
	payload := bytes.Repeat([]byte("abcdefg"), ChunkSize/7+10)
	n, err := out.Write(payload)
	require.NoError(t, err)
	assert.Equal(t, len(payload), n)

	out.WriteUint32(0xdeadbeef)
	out.WriteString(strings.Repeat("z", ChunkSize))
	out.WriteUvarint(300)

	in := NewInputByteBuffer(out.Bytes())
	assert.Equal(t, out.Len(), in.Remaining())

	got := make([]byte, len(payload))
	for i := range got {
		got[i] = in.ReadUint8()
	}
	assert.Equal(t, payload, got)
	assert.Equal(t, uint32(0xdeadbeef), in.ReadUint32())
	assert.Equal(t, strings.Repeat("z", ChunkSize), in.ReadString())
	assert.Equal(t, uint64(300), in.ReadUvarint())
	require.NoError(t, in.Err())
	assert.Zero(t, in.Remaining())

	var w bytes.Buffer
	written, err := out.WriteTo(&w)
	require.NoError(t, err)
	assert.Equal(t, int64(out.Len()), written)
	assert.Equal(t, out.Bytes(), w.Bytes())
}

func TestInputByteBuffer_StickyError(t *testing.T) {
	in := NewInputByteBuffer([]byte{0x05, 'a'})
	assert.Empty(t, in.ReadString())
	require.ErrorIs(t, in.Err(), parseErrors.ErrCorruptBuffer)
	assert.Zero(t, in.ReadUint8())
}
