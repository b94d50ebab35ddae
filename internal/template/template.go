// Package template expands a binding's query template against a parsed
// moniker path, substituting raw placeholders and SQL-translated
// placeholders per the template expander section ([D]) of SPEC_FULL.md.
package template

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/monikerhub/resolver/internal/apierr"
	"github.com/monikerhub/resolver/internal/moniker"
)

// ErrTemplateMissing wraps the name of a placeholder the expander could not
// resolve. It is apierr.ErrTemplateMissing, so apierr.MapError reports it
// as 422.
var ErrTemplateMissing = apierr.ErrTemplateMissing

// placeholderPattern matches any {...} token, raw or SQL-translated.
var placeholderPattern = regexp.MustCompile(`\{[^{}]*\}`)

var (
	segmentsIndex = regexp.MustCompile(`^segments\[(\d+)\]$`)
	filterIndex   = regexp.MustCompile(`^filter\[(\d+)\]:(.+)$`)
	isAllIndex    = regexp.MustCompile(`^is_all\[(\d+)\]$`)
)

const latestSentinel = "__LATEST__"

// Expand substitutes every placeholder in tmpl using p, returning the
// concrete query string. The first unresolved placeholder is reported via
// ErrTemplateMissing.
func Expand(tmpl string, p moniker.Path) (string, error) {
	var firstErr error
	result := placeholderPattern.ReplaceAllStringFunc(tmpl, func(token string) string {
		if firstErr != nil {
			return token
		}
		name := strings.TrimSuffix(strings.TrimPrefix(token, "{"), "}")
		value, err := resolvePlaceholder(name, p)
		if err != nil {
			firstErr = err
			return token
		}
		return value
	})
	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

func resolvePlaceholder(name string, p moniker.Path) (string, error) {
	switch {
	case name == "path":
		return strings.Join(p.Segments, "/"), nil
	case name == "version":
		return p.Version, nil
	case name == "revision":
		return p.Revision, nil
	case name == "namespace":
		return p.Namespace, nil
	case name == "version_date":
		return versionDate(p.Version), nil
	case name == "is_latest":
		return sqlBool(p.IsLatest()), nil
	case segmentsIndex.MatchString(name):
		n, err := indexOf(segmentsIndex, name)
		if err != nil {
			return "", err
		}
		if n < 0 || n >= len(p.Segments) {
			return "", fmt.Errorf("%w: segments[%d] out of range", ErrTemplateMissing, n)
		}
		return p.Segments[n], nil
	case isAllIndex.MatchString(name):
		n, err := indexOf(isAllIndex, name)
		if err != nil {
			return "", err
		}
		return sqlBool(p.IsAllSegment(n)), nil
	case filterIndex.MatchString(name):
		m := filterIndex.FindStringSubmatch(name)
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return "", fmt.Errorf("%w: %s", ErrTemplateMissing, name)
		}
		column := m[2]
		if p.IsAllSegment(n) {
			return "1=1", nil
		}
		if n < 0 || n >= len(p.Segments) {
			return "", fmt.Errorf("%w: filter[%d] out of range", ErrTemplateMissing, n)
		}
		return fmt.Sprintf("%s = %s", column, sqlQuote(p.Segments[n])), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrTemplateMissing, name)
	}
}

func indexOf(re *regexp.Regexp, name string) (int, error) {
	m := re.FindStringSubmatch(name)
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrTemplateMissing, name)
	}
	return n, nil
}

func versionDate(version string) string {
	switch version {
	case "":
		return "CURRENT_DATE()"
	case "latest":
		return fmt.Sprintf("'%s'", latestSentinel)
	default:
		return fmt.Sprintf("TO_DATE(%s,'YYYYMMDD')", sqlQuote(version))
	}
}

func sqlBool(b bool) string {
	if b {
		return "'true'"
	}
	return "'false'"
}

// sqlQuote single-quotes a value, doubling any embedded single quotes.
func sqlQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
