package compat

import (
	"errors"
	"fmt"
	"net/netip"
	"strings"

	"github.com/miekg/dns"
)

var (
	errEmptyListItem = errors.New("empty list item")
	errMixedNegation = errors.New("values must be either all inclusions or all exclusions")
)

type pipeItem struct {
	Value   string
	Negated bool
}

// pipeList splits a `|`-separated value. Each item is trimmed and reported
// with its `~` prefix stripped.
func pipeList(raw string) ([]pipeItem, error) {
	parts := strings.Split(raw, "|")
	items := make([]pipeItem, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		negated := strings.HasPrefix(p, "~")
		p = strings.TrimSpace(strings.TrimPrefix(p, "~"))
		if p == "" {
			return nil, errEmptyListItem
		}
		items = append(items, pipeItem{Value: p, Negated: negated})
	}
	return items, nil
}

func validatePipeList(raw string) error {
	_, err := pipeList(raw)
	return err
}

// validateNoMixedNegation accepts A|B or ~A|~B, never ~A|B.
func validateNoMixedNegation(raw string) error {
	items, err := pipeList(raw)
	if err != nil {
		return err
	}
	// Mode comes from the first value
	exclusion := items[0].Negated
	for _, it := range items[1:] {
		if it.Negated != exclusion {
			return errMixedNegation
		}
	}
	return nil
}

func validateDNSType(raw string) error {
	if err := validateNoMixedNegation(raw); err != nil {
		return err
	}
	items, _ := pipeList(raw)
	for _, it := range items {
		if _, ok := dns.StringToType[strings.ToUpper(it.Value)]; !ok {
			return fmt.Errorf("unknown DNS record type %q", it.Value)
		}
	}
	return nil
}

// validateDenyAllow rejects negated and wildcard domains.
func validateDenyAllow(raw string) error {
	items, err := pipeList(raw)
	if err != nil {
		return err
	}
	for _, it := range items {
		if it.Negated {
			return fmt.Errorf("denyallow domain %q cannot be negated", it.Value)
		}
		if strings.Contains(it.Value, "*") {
			return fmt.Errorf("denyallow domain %q cannot contain wildcards", it.Value)
		}
	}
	return nil
}

// validateDNSRewrite accepts the short forms (an IP address, a hostname or
// a response code) and the full RCODE;RRTYPE;VALUE form.
func validateDNSRewrite(raw string) error {
	raw = strings.TrimSpace(raw)
	if !strings.Contains(raw, ";") {
		if _, ok := dns.StringToRcode[strings.ToUpper(raw)]; ok {
			return nil
		}
		if _, err := netip.ParseAddr(raw); err == nil {
			return nil
		}
		if _, ok := dns.IsDomainName(raw); ok {
			return nil
		}
		return fmt.Errorf("invalid dnsrewrite value %q", raw)
	}

	parts := strings.SplitN(raw, ";", 3)
	if len(parts) != 3 {
		return fmt.Errorf("dnsrewrite %q: want RCODE;RRTYPE;VALUE", raw)
	}
	rcode := strings.ToUpper(strings.TrimSpace(parts[0]))
	if _, ok := dns.StringToRcode[rcode]; !ok {
		return fmt.Errorf("dnsrewrite: unknown response code %q", parts[0])
	}
	rrtype := strings.ToUpper(strings.TrimSpace(parts[1]))
	if rrtype == "" {
		// NOERROR;; is a valid empty answer
		return nil
	}
	qtype, ok := dns.StringToType[rrtype]
	if !ok {
		return fmt.Errorf("dnsrewrite: unknown record type %q", parts[1])
	}

	value := strings.TrimSpace(parts[2])
	switch qtype {
	case dns.TypeA:
		if ip, err := netip.ParseAddr(value); err != nil || !ip.Is4() {
			return fmt.Errorf("dnsrewrite: %q is not an IPv4 address", value)
		}
	case dns.TypeAAAA:
		if ip, err := netip.ParseAddr(value); err != nil || !ip.Is6() {
			return fmt.Errorf("dnsrewrite: %q is not an IPv6 address", value)
		}
	case dns.TypeCNAME, dns.TypePTR:
		if _, ok := dns.IsDomainName(value); !ok {
			return fmt.Errorf("dnsrewrite: %q is not a domain name", value)
		}
	}
	return nil
}
