// Package codec serializes AST trees to a compact, versioned binary format.
//
// A buffer starts with the schema version (uint32, little endian) and a flags
// byte, followed by one node. A node is a type tag, then any number of
// (property tag, payload) pairs, then propEnd. Strings are uvarint
// length-prefixed, integers are uvarints and child sequences are a count
// followed by the children. Source locations are written only when
// Options.IncludeLocations is set.
package codec

import (
	"fmt"

	"agtree/ast"
	parseErrors "agtree/errors"
)

// SchemaVersion must be bumped whenever the layout of any node changes.
const SchemaVersion uint32 = 1

const flagLocations uint8 = 1 << 0

// Options controls serialization.
type Options struct {
	IncludeLocations bool
}

// Node type tags.
const (
	tagNull uint8 = iota
	tagEmptyRule
	tagInvalidRule
	tagCommentRule
	tagAgentCommentRule
	tagAgent
	tagHintCommentRule
	tagHint
	tagPreProcessorCommentRule
	tagMetadataCommentRule
	tagConfigCommentRule
	tagConfigNode
	tagParameterList
	tagValue
	tagExpressionVariable
	tagExpressionOperator
	tagExpressionParenthesis
	tagNetworkRule
	tagHostRule
	tagHostnameList
	tagModifierList
	tagModifier
	tagDomainList
	tagDomain
	tagElementHidingRule
	tagCssInjectionRule
	tagScriptletInjectionRule
	tagJsInjectionRule
	tagHtmlFilteringRule
	tagElementHidingRuleBody
	tagCssInjectionRuleBody
	tagScriptletInjectionRuleBody
	tagFilterList
)

// Property tags.
const (
	propEnd uint8 = iota
	propLoc
	propSyntax
	propRaws
	propException
	propSeparator
	propDomains
	propModifiers
	propBody
	propName
	propValue
	propChildren
	propParams
	propMarker
	propText
	propHeader
	propCommand
	propComment
	propPattern
	propIP
	propHostnames
	propVersion
	propAdblock
	propOperator
	propLeft
	propRight
	propExpression
	propMediaQueryList
	propSelectorList
	propDeclarationList
	propRemove
	propRaw
	propErrorMessage
	propErrorStart
	propErrorEnd
)

// Serialize writes node to out, preceded by the schema header.
func Serialize(node ast.Node, out *OutputByteBuffer, opts Options) error {
	out.WriteUint32(SchemaVersion)
	var flags uint8
	if opts.IncludeLocations {
		flags |= flagLocations
	}
	out.WriteUint8(flags)

	e := &encoder{out: out, locs: opts.IncludeLocations}
	return e.node(node)
}

// Deserialize reads one node written by Serialize. A buffer written with a
// different schema version is rejected before any node is read.
func Deserialize(in *InputByteBuffer) (ast.Node, error) {
	version := in.ReadUint32()
	flags := in.ReadUint8()
	if err := in.Err(); err != nil {
		return nil, err
	}
	if version != SchemaVersion {
		return nil, fmt.Errorf("%w: got version %d, want %d", parseErrors.ErrSchemaMismatch, version, SchemaVersion)
	}

	d := &decoder{in: in, locs: flags&flagLocations != 0}
	node, err := d.node()
	if err != nil {
		return nil, err
	}
	if err := in.Err(); err != nil {
		return nil, err
	}
	return node, nil
}

// Marshal serializes node into a new byte slice.
func Marshal(node ast.Node, opts Options) ([]byte, error) {
	out := NewOutputByteBuffer()
	if err := Serialize(node, out, opts); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// Unmarshal deserializes a byte slice produced by Marshal.
func Unmarshal(data []byte) (ast.Node, error) {
	return Deserialize(NewInputByteBuffer(data))
}

// UnmarshalFilterList is Unmarshal for buffers holding a FilterList.
func UnmarshalFilterList(data []byte) (*ast.FilterList, error) {
	node, err := Unmarshal(data)
	if err != nil {
		return nil, err
	}
	list, ok := node.(*ast.FilterList)
	if !ok {
		return nil, fmt.Errorf("%w: expected a filter list, got %T", parseErrors.ErrCorruptBuffer, node)
	}
	return list, nil
}
