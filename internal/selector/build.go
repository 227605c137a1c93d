package selector

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/suziejprince/taiko/internal/domains"
)

// buildQuery turns sel into a query string suitable for
// DOM.performSearch, which accepts a CSS selector, an XPath expression,
// or plain search text — per the four-way dispatch in spec.md §4.6.
func buildQuery(sel Selector) (string, error) {
	if sel.ElementType != ElementGeneric {
		return buildTypedQuery(sel)
	}

	switch sel.Kind {
	case KindLabel:
		return labelQuery(sel.Text, sel.Exact), nil
	case KindAttrs:
		return attrsXPath(sel.Tag, sel.Attrs), nil
	case KindXPathOrCss:
		return sel.Expr, nil
	case KindComposite:
		return buildQuery(*sel.Base)
	default:
		return "", fmt.Errorf("selector: unknown selector kind %d", sel.Kind)
	}
}

// labelQuery implements spec.md §4.6 point 1: a bare label string is
// first tried as a value-attribute probe (it matches input/button
// values directly); Resolve falls back to containsTextFallbackXPath
// when this returns nothing and the match is not required to be exact.
// An exact (text()) selector skips the @value probe and matches the
// element's own normalized text directly.
func labelQuery(text string, exact bool) string {
	if exact {
		return fmt.Sprintf(`//*[not(.//div) and normalize-space(string(.))=%s]`, xpathLiteral(text))
	}
	return fmt.Sprintf(`//*[contains(@value, %s)]`, xpathLiteral(text))
}

// containsTextFallbackXPath is spec.md §4.6 point 1's fallback: a
// case-insensitive, whitespace-normalized substring match on elements
// that have no descendant <div> (excluding container elements whose own
// text is really their children's, which would otherwise match every
// ancestor up to <body>).
func containsTextFallbackXPath(text string) string {
	needle := xpathLiteral(strings.ToLower(text))
	return fmt.Sprintf(
		`//*[not(.//div) and contains(translate(normalize-space(string(.)), %s, %s), %s)]`,
		xpathLiteral(upperAlphabet), xpathLiteral(lowerAlphabet), needle,
	)
}

const (
	upperAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	lowerAlphabet = "abcdefghijklmnopqrstuvwxyz"
)

// attrsXPath implements spec.md §4.6 point 2: join attribute predicates,
// with class matched by contains() (classes are space-separated lists)
// and every other attribute matched by equality.
func attrsXPath(tag string, attrs map[string]string) string {
	if tag == "" {
		tag = "*"
	}
	if len(attrs) == 0 {
		return fmt.Sprintf("//%s", tag)
	}
	predicates := make([]string, 0, len(attrs))
	for name, value := range attrs {
		if name == "class" {
			predicates = append(predicates, fmt.Sprintf("contains(@class, %s)", xpathLiteral(value)))
		} else {
			predicates = append(predicates, fmt.Sprintf("@%s=%s", name, xpathLiteral(value)))
		}
	}
	return fmt.Sprintf("//%s[%s]", tag, strings.Join(predicates, " and "))
}

// buildTypedQuery implements spec.md §4.6 point 4: the type-specific
// factories. Each joins its input tag to a nearby <label> via for/id
// when given a label string, or filters directly by tag plus attributes
// when given an attribute map; link/button/listItem/image have no
// separate label element, so they match their own text or alt directly.
func buildTypedQuery(sel Selector) (string, error) {
	switch sel.ElementType {
	case ElementTextField:
		return labelJoinedXPath(sel, `input[not(@type) or @type='text' or @type='email' or @type='password' or @type='search' or @type='tel' or @type='url'] | textarea`), nil
	case ElementInputField:
		return labelJoinedXPath(sel, `input`), nil
	case ElementFileField:
		return labelJoinedXPath(sel, `input[@type='file']`), nil
	case ElementCheckBox:
		return labelJoinedXPath(sel, `input[@type='checkbox']`), nil
	case ElementRadioButton:
		return labelJoinedXPath(sel, `input[@type='radio']`), nil
	case ElementComboBox:
		return labelJoinedXPath(sel, `select`), nil
	case ElementLink:
		return ownTextXPath(sel, "a", ""), nil
	case ElementButton:
		return ownTextXPath(sel, "button", `input[@type='submit' or @type='button']`), nil
	case ElementListItem:
		return ownTextXPath(sel, "li", ""), nil
	case ElementImage:
		return imageXPath(sel), nil
	default:
		return "", fmt.Errorf("selector: unknown element type %q", sel.ElementType)
	}
}

// labelJoinedXPath builds the "input joined to a <label> via for/id"
// union from spec.md §4.6 point 4: either the input is the label's
// descendant, or the label's for attribute names the input's id.
func labelJoinedXPath(sel Selector, inputXPath string) string {
	if sel.Text != "" {
		lit := xpathLiteral(sel.Text)
		return fmt.Sprintf(
			`//label[contains(normalize-space(string(.)), %s)]//%s | //%s[@id=//label[contains(normalize-space(string(.)), %s)]/@for]`,
			lit, inputXPath, inputXPath, lit,
		)
	}
	return tagWithAttrsXPath(inputXPath, sel.Attrs)
}

// ownTextXPath builds the query for element types whose own visible
// text is the label (links, buttons, list items): match on the
// element's normalized text, or fall back to an attribute map, plus an
// optional alternate tag (buttons also match submit/button inputs).
func ownTextXPath(sel Selector, tag, altTag string) string {
	if sel.Text != "" {
		lit := xpathLiteral(sel.Text)
		q := fmt.Sprintf(`//%s[contains(normalize-space(string(.)), %s)]`, tag, lit)
		if altTag != "" {
			q += fmt.Sprintf(` | //%s[contains(@value, %s)]`, altTag, lit)
		}
		return q
	}
	if altTag != "" {
		return tagWithAttrsXPath(tag, sel.Attrs) + " | " + tagWithAttrsXPath(altTag, sel.Attrs)
	}
	return tagWithAttrsXPath(tag, sel.Attrs)
}

// imageXPath matches images by alt text or by attribute map.
func imageXPath(sel Selector) string {
	if sel.Text != "" {
		return fmt.Sprintf(`//img[contains(@alt, %s)]`, xpathLiteral(sel.Text))
	}
	return tagWithAttrsXPath("img", sel.Attrs)
}

func tagWithAttrsXPath(tag string, attrs map[string]string) string {
	q := attrsXPath(tag, attrs)
	// attrsXPath returns "//tag[...]"; when tag itself already carries a
	// predicate (e.g. "input[@type='file']") fold the attribute predicates
	// into the same bracket instead of nesting a second XPath step.
	if i := strings.Index(tag, "["); i >= 0 {
		base := tag[:i]
		existing := tag[i+1 : len(tag)-1]
		if len(attrs) == 0 {
			return fmt.Sprintf("//%s", tag)
		}
		extra := attrsXPath(base, attrs)
		extraPred := extra[strings.Index(extra, "[")+1 : len(extra)-1]
		return fmt.Sprintf("//%s[%s and %s]", base, existing, extraPred)
	}
	return q
}

// xpathLiteral quotes s as an XPath string literal, switching to the
// concat() workaround when s itself contains both quote characters
// (XPath 1.0 has no string escape mechanism).
func xpathLiteral(s string) string {
	if !strings.Contains(s, `"`) {
		return fmt.Sprintf(`"%s"`, s)
	}
	if !strings.Contains(s, `'`) {
		return fmt.Sprintf(`'%s'`, s)
	}
	parts := strings.Split(s, `"`)
	quoted := make([]string, len(parts))
	for i, p := range parts {
		quoted[i] = fmt.Sprintf(`"%s"`, p)
	}
	return fmt.Sprintf(`concat(%s)`, strings.Join(quoted, `, '"', `))
}

// unmarshalBool decodes a Runtime RemoteValue's raw JSON value field
// into a Go bool, the shape Runtime.callFunctionOn returns for
// returnByValue boolean predicates.
func unmarshalBool(result *domains.RemoteValue, out *bool) error {
	if result == nil {
		return fmt.Errorf("selector: nil result")
	}
	if err := json.Unmarshal(result.Value, out); err != nil {
		return fmt.Errorf("selector: decoding boolean predicate result: %w", err)
	}
	return nil
}
