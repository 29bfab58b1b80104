// Package compat holds the network modifier compatibility table consulted
// by the parser: which modifiers exist, which dialects support them and how
// their values are shaped.
package compat

import (
	"errors"
	"fmt"
	"strings"

	"agtree/ast"
)

var (
	// ErrUnknownModifier is returned for a modifier missing from the table.
	ErrUnknownModifier = errors.New("unknown modifier")
	// ErrIncompatibleModifier is returned when a dialect does not support a
	// modifier.
	ErrIncompatibleModifier = errors.New("modifier is not supported by this syntax")
	// ErrInvalidModifierValue is returned for a malformed modifier value.
	ErrInvalidModifierValue = errors.New("invalid modifier value")
)

// ValueRule says whether a modifier takes a value.
type ValueRule int

const (
	ValueOptional ValueRule = iota
	ValueRequired
	ValueForbidden
)

// ValueValidator checks a modifier value.
type ValueValidator func(value string) error

// ModifierInfo describes one network modifier.
type ModifierInfo struct {
	Name     string
	Aliases  []string
	Syntaxes []ast.Syntax
	Value    ValueRule
	// Negatable modifiers accept the `~` prefix.
	Negatable bool
	// ResourceType marks content-type modifiers such as `script`.
	ResourceType bool
	Validate     ValueValidator
}

// Supports reports whether syntax may use the modifier. Common syntax is
// supported by every entry.
func (m *ModifierInfo) Supports(syntax ast.Syntax) bool {
	if syntax == ast.SyntaxCommon {
		return true
	}
	for _, s := range m.Syntaxes {
		if s == syntax {
			return true
		}
	}
	return false
}

// Table maps modifier names and aliases to their description.
type Table struct {
	byName map[string]*ModifierInfo
}

// NewTable builds a table from entries.
func NewTable(entries []*ModifierInfo) *Table {
	t := &Table{byName: make(map[string]*ModifierInfo, len(entries)*2)}
	for _, e := range entries {
		t.byName[e.Name] = e
		for _, alias := range e.Aliases {
			t.byName[alias] = e
		}
	}
	return t
}

// Lookup returns the entry for a name or alias.
func (t *Table) Lookup(name string) (*ModifierInfo, bool) {
	info, ok := t.byName[strings.ToLower(name)]
	return info, ok
}

// IsValidResourceType reports whether name is a content-type modifier.
func (t *Table) IsValidResourceType(name string) bool {
	info, ok := t.Lookup(name)
	return ok && info.ResourceType
}

// ValidateModifier checks m against the table.
func (t *Table) ValidateModifier(m *ast.Modifier, syntax ast.Syntax) error {
	name := m.Name.Value
	info, ok := t.Lookup(name)
	if !ok {
		return ErrUnknownModifier
	}
	if !info.Supports(syntax) {
		return fmt.Errorf("%w: %s", ErrIncompatibleModifier, syntax)
	}
	if m.Exception && !info.Negatable {
		return fmt.Errorf("%w: %s cannot be negated", ErrInvalidModifierValue, name)
	}

	switch info.Value {
	case ValueRequired:
		if m.Value == nil {
			return fmt.Errorf("%w: %s requires a value", ErrInvalidModifierValue, name)
		}
	case ValueForbidden:
		if m.Value != nil {
			return fmt.Errorf("%w: %s does not accept a value", ErrInvalidModifierValue, name)
		}
	}

	if m.Value != nil && info.Validate != nil {
		if err := info.Validate(m.Value.Value); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidModifierValue, err)
		}
	}
	return nil
}

var defaultTable = NewTable(defaultModifiers())

// Default returns the built-in table.
func Default() *Table {
	return defaultTable
}

// IsValidResourceType reports whether name is a content-type modifier of the
// built-in table.
func IsValidResourceType(name string) bool {
	return defaultTable.IsValidResourceType(name)
}

var (
	allSyntaxes = []ast.Syntax{ast.SyntaxAdg, ast.SyntaxUbo, ast.SyntaxAbp}
	adgOnly     = []ast.Syntax{ast.SyntaxAdg}
	adgUbo      = []ast.Syntax{ast.SyntaxAdg, ast.SyntaxUbo}
	uboOnly     = []ast.Syntax{ast.SyntaxUbo}
	abpOnly     = []ast.Syntax{ast.SyntaxAbp}
)

func resourceType(name string, aliases ...string) *ModifierInfo {
	return &ModifierInfo{
		Name:         name,
		Aliases:      aliases,
		Syntaxes:     allSyntaxes,
		Value:        ValueForbidden,
		Negatable:    true,
		ResourceType: true,
	}
}

func flag(name string, syntaxes []ast.Syntax, negatable bool, aliases ...string) *ModifierInfo {
	return &ModifierInfo{Name: name, Aliases: aliases, Syntaxes: syntaxes, Value: ValueForbidden, Negatable: negatable}
}

func valued(name string, syntaxes []ast.Syntax, rule ValueRule, validate ValueValidator, aliases ...string) *ModifierInfo {
	return &ModifierInfo{Name: name, Aliases: aliases, Syntaxes: syntaxes, Value: rule, Validate: validate}
}

func defaultModifiers() []*ModifierInfo {
	return []*ModifierInfo{
		// content types
		resourceType("document", "doc"),
		resourceType("subdocument", "frame"),
		resourceType("script"),
		resourceType("stylesheet", "css"),
		resourceType("image"),
		resourceType("object"),
		resourceType("xmlhttprequest", "xhr"),
		resourceType("ping"),
		resourceType("websocket"),
		resourceType("webrtc"),
		resourceType("font"),
		resourceType("media"),
		resourceType("popup"),
		resourceType("other"),

		// party and matching
		flag("third-party", allSyntaxes, true, "3p"),
		flag("first-party", adgUbo, true, "1p"),
		flag("strict1p", uboOnly, false),
		flag("strict3p", uboOnly, false),
		flag("match-case", allSyntaxes, true),
		flag("important", adgUbo, false),
		flag("badfilter", adgUbo, false),
		flag("all", adgUbo, false),

		// exception-only switches
		flag("elemhide", allSyntaxes, false, "ehide"),
		flag("generichide", allSyntaxes, false, "ghide"),
		flag("specifichide", adgUbo, false, "shide"),
		flag("genericblock", allSyntaxes, false),
		flag("content", adgOnly, false),
		flag("jsinject", adgOnly, false),
		flag("urlblock", adgOnly, false),
		flag("extension", adgOnly, false),
		flag("stealth", adgOnly, false),
		flag("inline-script", uboOnly, false),
		flag("inline-font", uboOnly, false),
		flag("empty", adgUbo, false),
		flag("mp4", adgUbo, false),

		// valued
		valued("domain", allSyntaxes, ValueRequired, validatePipeList, "from"),
		valued("to", uboOnly, ValueRequired, validatePipeList),
		valued("denyallow", adgUbo, ValueRequired, validateDenyAllow),
		valued("redirect", adgUbo, ValueOptional, nil),
		valued("redirect-rule", adgUbo, ValueRequired, nil),
		valued("rewrite", abpOnly, ValueRequired, nil),
		valued("removeparam", adgUbo, ValueOptional, nil, "queryprune"),
		valued("removeheader", adgUbo, ValueRequired, nil),
		valued("csp", allSyntaxes, ValueOptional, nil),
		valued("replace", adgUbo, ValueRequired, nil),
		valued("header", adgUbo, ValueRequired, nil),
		valued("method", adgUbo, ValueRequired, validateNoMixedNegation),
		valued("permissions", adgUbo, ValueRequired, nil),
		valued("cookie", adgOnly, ValueOptional, nil),
		valued("app", adgOnly, ValueRequired, validateNoMixedNegation),
		valued("network", adgOnly, ValueRequired, nil),
		valued("sitekey", abpOnly, ValueRequired, nil),
		valued("hls", adgOnly, ValueRequired, nil),
		valued("jsonprune", adgOnly, ValueRequired, nil),

		// DNS filtering
		valued("client", adgOnly, ValueRequired, validateNoMixedNegation),
		valued("ctag", adgOnly, ValueRequired, validateNoMixedNegation),
		valued("dnstype", adgOnly, ValueRequired, validateDNSType),
		valued("dnsrewrite", adgOnly, ValueRequired, validateDNSRewrite),
	}
}
