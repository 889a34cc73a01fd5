// Package resolver turns the text of a link file into a request path, an
// attribute-safe href and the unencoded payload fed to the QR encoder.
package resolver

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/starford/qrx/internal/models"
)

var lineBreakRe = regexp.MustCompile(`[\r\n]+`)

// Policy maps a trimmed base path to an absolute request path.
type Policy func(base string) string

// Policy names accepted by PolicyByName.
const (
	PolicyHash  = "hash"
	PolicySlash = "slash"
)

// HashRoutePolicy keeps absolute paths, roots hash routes, and sends bare
// tokens to the hash router.
func HashRoutePolicy(base string) string {
	switch {
	case strings.HasPrefix(base, "#"):
		return "/" + base
	case strings.HasPrefix(base, "/"):
		return base
	default:
		return "/#" + base
	}
}

// LeadingSlashPolicy prefixes exactly one slash.
func LeadingSlashPolicy(base string) string {
	return "/" + strings.TrimLeft(base, "/")
}

// PolicyByName returns the policy registered under name. An empty name
// selects HashRoutePolicy.
func PolicyByName(name string) (Policy, error) {
	switch name {
	case "", PolicyHash:
		return HashRoutePolicy, nil
	case PolicySlash:
		return LeadingSlashPolicy, nil
	default:
		return nil, fmt.Errorf("resolver: unknown path policy %q", name)
	}
}

// Resolver resolves link text using a fixed Policy.
type Resolver struct {
	Policy Policy
}

// New creates a Resolver. A nil policy falls back to HashRoutePolicy.
func New(p Policy) *Resolver {
	if p == nil {
		p = HashRoutePolicy
	}
	return &Resolver{Policy: p}
}

// Resolve resolves raw with HashRoutePolicy.
func Resolve(raw string) models.ResolvedLink {
	return New(nil).Resolve(raw)
}

// Resolve converts raw link text to a ResolvedLink. It accepts any input.
func (r *Resolver) Resolve(raw string) models.ResolvedLink {
	parts := Split(raw)

	policy := r.Policy
	if policy == nil {
		policy = HashRoutePolicy
	}
	reqPath := policy(parts.BasePath)

	link := models.ResolvedLink{
		RequestPath: reqPath,
		Href:        reqPath,
		QRPayload:   reqPath,
	}
	if parts.RawQuery == "" {
		return link
	}

	link.Href = reqPath + "?" + EncodeQuery(parts.RawQuery)
	link.QRPayload = reqPath + "?" + parts.RawQuery
	return link
}

// Normalize collapses every run of line breaks into one space and trims
// the result. A leading byte order mark counts as whitespace.
func Normalize(raw string) string {
	return trim(lineBreakRe.ReplaceAllString(raw, " "))
}

func trim(s string) string {
	return strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || r == '\uFEFF'
	})
}

// Split normalizes raw and splits it at the first '?'.
func Split(raw string) models.PathParts {
	base, query, _ := SplitOnce(Normalize(raw), "?")
	return models.PathParts{
		BasePath: trim(base),
		RawQuery: query,
	}
}

// SplitOnce splits s around the first sep. The remainder is returned whole,
// including any further occurrences of sep.
func SplitOnce(s, sep string) (head, rest string, found bool) {
	i := strings.Index(s, sep)
	if i < 0 {
		return s, "", false
	}
	return s[:i], s[i+len(sep):], true
}

// EncodeQuery percent-encodes the value of every '&'-separated parameter.
// Keys are left as written. A parameter without '=' is emitted as "key=".
func EncodeQuery(rawQuery string) string {
	params := strings.Split(rawQuery, "&")
	for i, p := range params {
		key, value, _ := SplitOnce(p, "=")
		params[i] = key + "=" + EscapeComponent(value)
	}
	return strings.Join(params, "&")
}

const upperhex = "0123456789ABCDEF"

// EscapeComponent percent-encodes every byte of s outside the URI component
// unreserved set A-Z a-z 0-9 - _ . ! ~ * ' ( ).
func EscapeComponent(s string) string {
	n := 0
	for i := 0; i < len(s); i++ {
		if !unreserved(s[i]) {
			n++
		}
	}
	if n == 0 {
		return s
	}

	var b strings.Builder
	b.Grow(len(s) + 2*n)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if unreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperhex[c>>4])
		b.WriteByte(upperhex[c&15])
	}
	return b.String()
}

func unreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	switch c {
	case '-', '_', '.', '!', '~', '*', '\'', '(', ')':
		return true
	}
	return false
}
