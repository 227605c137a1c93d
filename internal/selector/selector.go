// Package selector implements the Selector Engine described in
// spec.md §4.6: semantic element lookup by label, attribute map, raw
// XPath/CSS, or a type-specific factory, filtered by visibility and
// narrowed by relative-position constraints (package relative).
//
// Query resolution (building the XPath/CSS string) has no direct analog
// in tomyan-hubcap, which only ever queries by a caller-supplied CSS
// selector (internal/chrome/query.go's Query/GetText/Exists); the
// contains(text)/attribute-predicate/label-join algorithm here follows
// spec.md §4.6 directly. The plumbing used to execute a query and filter
// by visibility — DOM.performSearch/getSearchResults, DOM.resolveNode
// plus Runtime.callFunctionOn for an offsetParent probe, DOM.getBoxModel
// for geometry — reuses the internal/domains adapters built for exactly
// this purpose, the same way hubcap's own IsVisible/GetBoundingBox lean
// on a single Runtime.evaluate round trip instead of one CDP call per
// concern.
package selector

import (
	"context"
	"fmt"
	"strings"

	"github.com/suziejprince/taiko/internal/domains"
	"github.com/suziejprince/taiko/internal/relative"
)

// Kind discriminates a Selector's tagged-union case, per spec.md §3.
type Kind int

const (
	KindLabel Kind = iota
	KindAttrs
	KindXPathOrCss
	KindComposite
)

// ElementType selects one of the type-specific factories from
// spec.md §4.6. ElementGeneric is the plain "$" / contains() selector.
type ElementType string

const (
	ElementGeneric     ElementType = ""
	ElementTextField   ElementType = "textField"
	ElementInputField  ElementType = "inputField"
	ElementFileField   ElementType = "fileField"
	ElementCheckBox    ElementType = "checkBox"
	ElementRadioButton ElementType = "radioButton"
	ElementComboBox    ElementType = "comboBox"
	ElementLink        ElementType = "link"
	ElementButton      ElementType = "button"
	ElementListItem    ElementType = "listItem"
	ElementImage       ElementType = "image"
)

// RelativeConstraint pairs a spatial predicate with an anchor selector,
// per spec.md §3's RelativeConstraint record.
type RelativeConstraint struct {
	Kind   relative.Kind
	Anchor Selector
}

// Selector is the tagged record from spec.md §3.
type Selector struct {
	Kind        Kind
	ElementType ElementType

	// KindLabel / type-specific factories.
	Text  string
	Exact bool // true for text(), false (contains) for contains()/label matching

	// KindAttrs.
	Tag   string
	Attrs map[string]string

	// KindXPathOrCss.
	Expr string

	// KindComposite.
	Base      *Selector
	Relatives []RelativeConstraint

	// Description is the human-readable string used in error messages and
	// action return values, per spec.md §6 ("every action returns
	// {description, ...}").
	Description string
}

// Label builds a KindLabel selector: a human-visible label, matched by
// contains() unless exact is true (backing the text()/contains() public
// factories).
func Label(text string, exact bool) Selector {
	mode := "contains"
	if exact {
		mode = "text"
	}
	return Selector{Kind: KindLabel, Text: text, Exact: exact, Description: fmt.Sprintf("%s(%q)", mode, text)}
}

// Attrs builds a KindAttrs selector.
func Attrs(tag string, attrs map[string]string) Selector {
	return Selector{Kind: KindAttrs, Tag: tag, Attrs: attrs, Description: describeAttrs(tag, attrs)}
}

// XPathOrCss builds a KindXPathOrCss selector from raw query text.
func XPathOrCss(expr string) Selector {
	return Selector{Kind: KindXPathOrCss, Expr: expr, Description: expr}
}

// Typed builds a type-specific factory selector (textField, inputField,
// fileField, checkBox, radioButton, comboBox, link, button, listItem,
// image) from either a label string or an attribute map — spec.md §4.6
// point 4.
func Typed(elementType ElementType, text string, attrs map[string]string) Selector {
	s := Selector{ElementType: elementType}
	if text != "" {
		s.Kind = KindLabel
		s.Text = text
		s.Description = fmt.Sprintf("%s(%q)", elementType, text)
	} else {
		s.Kind = KindAttrs
		s.Attrs = attrs
		s.Description = fmt.Sprintf("%s(%s)", elementType, describeAttrs("", attrs))
	}
	return s
}

// With returns a Composite selector combining base with additional
// relative constraints.
func With(base Selector, relatives ...RelativeConstraint) Selector {
	b := base
	return Selector{
		Kind:        KindComposite,
		Base:        &b,
		Relatives:   append(append([]RelativeConstraint{}, collectRelatives(base)...), relatives...),
		Description: describeComposite(base, relatives),
	}
}

func collectRelatives(s Selector) []RelativeConstraint {
	if s.Kind == KindComposite {
		return s.Relatives
	}
	return nil
}

func describeAttrs(tag string, attrs map[string]string) string {
	var b strings.Builder
	if tag != "" {
		b.WriteString(tag)
	}
	parts := make([]string, 0, len(attrs))
	for k, v := range attrs {
		parts = append(parts, fmt.Sprintf("%s=%q", k, v))
	}
	b.WriteString("[" + strings.Join(parts, " ") + "]")
	return b.String()
}

func describeComposite(base Selector, relatives []RelativeConstraint) string {
	desc := base.Description
	for _, r := range relatives {
		desc += fmt.Sprintf(" %s %s", r.Kind, r.Anchor.Description)
	}
	return desc
}

// Match is one resolved, visible candidate: its DOM node id and viewport
// rectangle.
type Match struct {
	NodeID int
	Rect   relative.Rectangle
}

// NotFoundError is returned when a selector resolves to no visible
// matches, naming the selector's description per spec.md §7
// (ElementNotFound: "Fail with selector description").
type NotFoundError struct {
	Description string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("selector: no visible element found for %s", e.Description)
}

// Resolve resolves sel against the currently attached target's document,
// applying visibility filtering and relative constraints, and returns
// matches ranked by ascending distance when relative constraints are
// present (spec.md §4.7). The search covers the document of the DOM
// session dom is bound to; rootNodeID is only passed on to anchor
// resolution and does not narrow DOM.performSearch.
func Resolve(ctx context.Context, dom *domains.DOM, rt *domains.Runtime, rootNodeID int, sel Selector) ([]Match, error) {
	query, err := buildQuery(sel)
	if err != nil {
		return nil, err
	}

	nodeIDs, err := search(ctx, dom, query)
	if err != nil {
		return nil, err
	}
	if len(nodeIDs) == 0 && sel.Kind == KindLabel && !sel.Exact {
		// Fallback per spec.md §4.6 point 1: if the @value probe found
		// nothing, fall back to a case-insensitive normalized-space text
		// match on elements with no descendant <div>.
		nodeIDs, err = search(ctx, dom, containsTextFallbackXPath(sel.Text))
		if err != nil {
			return nil, err
		}
	}

	matches := make([]Match, 0, len(nodeIDs))
	for _, nodeID := range nodeIDs {
		visible, err := isVisible(ctx, dom, rt, nodeID)
		if err != nil || !visible {
			continue
		}
		rect, err := rectangle(ctx, dom, nodeID)
		if err != nil {
			continue
		}
		matches = append(matches, Match{NodeID: nodeID, Rect: rect})
	}

	if sel.Kind == KindComposite && len(sel.Relatives) > 0 {
		matches, err = applyRelatives(ctx, dom, rt, rootNodeID, matches, sel.Relatives)
		if err != nil {
			return nil, err
		}
	}

	if len(matches) == 0 {
		return nil, &NotFoundError{Description: sel.Description}
	}
	return matches, nil
}

func applyRelatives(ctx context.Context, dom *domains.DOM, rt *domains.Runtime, rootNodeID int, matches []Match, relatives []RelativeConstraint) ([]Match, error) {
	constraints := make([]relative.Constraint, 0, len(relatives))
	for _, rc := range relatives {
		anchorMatches, err := Resolve(ctx, dom, rt, rootNodeID, rc.Anchor)
		if err != nil {
			return nil, fmt.Errorf("selector: resolving anchor %s: %w", rc.Anchor.Description, err)
		}
		rects := make([]relative.Rectangle, len(anchorMatches))
		for i, m := range anchorMatches {
			rects[i] = m.Rect
		}
		constraints = append(constraints, relative.Constraint{Kind: rc.Kind, AnchorRects: rects})
	}

	candidates := make([]relative.Candidate[Match], 0, len(matches))
	for _, m := range matches {
		if !relative.Matches(m.Rect, constraints) {
			continue
		}
		candidates = append(candidates, relative.Candidate[Match]{
			Value: m,
			Rect:  m.Rect,
			Score: relative.Score(m.Rect, constraints),
		})
	}
	ranked := relative.Rank(candidates)

	out := make([]Match, len(ranked))
	for i, c := range ranked {
		out[i] = c.Value
	}
	return out, nil
}

func search(ctx context.Context, dom *domains.DOM, query string) ([]int, error) {
	searchID, count, err := dom.PerformSearch(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("selector: searching %q: %w", query, err)
	}
	defer dom.DiscardSearchResults(ctx, searchID)

	if count == 0 {
		return nil, nil
	}
	return dom.GetSearchResults(ctx, searchID, 0, count)
}

// visibilityProbe mirrors the "offsetParent is non-null" visibility rule
// from spec.md §4.6 point 5.
const visibilityProbe = `function() { return this.offsetParent !== null; }`

func isVisible(ctx context.Context, dom *domains.DOM, rt *domains.Runtime, nodeID int) (bool, error) {
	objectID, err := dom.ResolveNode(ctx, nodeID)
	if err != nil {
		return false, err
	}
	defer rt.ReleaseObject(ctx, objectID)

	result, err := rt.CallFunctionOn(ctx, objectID, visibilityProbe, nil, true)
	if err != nil {
		return false, err
	}
	var visible bool
	if err := unmarshalBool(result, &visible); err != nil {
		return false, err
	}
	return visible, nil
}

func rectangle(ctx context.Context, dom *domains.DOM, nodeID int) (relative.Rectangle, error) {
	box, err := dom.GetBoxModel(ctx, nodeID)
	if err != nil {
		return relative.Rectangle{}, err
	}
	return quadToRectangle(box.Border), nil
}

// quadToRectangle reduces an eight-number CDP border quad
// (x0,y0,x1,y1,x2,y2,x3,y3, clockwise from top-left) to its axis-aligned
// bounding rectangle.
func quadToRectangle(quad []float64) relative.Rectangle {
	if len(quad) < 8 {
		return relative.Rectangle{}
	}
	xs := []float64{quad[0], quad[2], quad[4], quad[6]}
	ys := []float64{quad[1], quad[3], quad[5], quad[7]}
	r := relative.Rectangle{Left: xs[0], Right: xs[0], Top: ys[0], Bottom: ys[0]}
	for _, x := range xs {
		if x < r.Left {
			r.Left = x
		}
		if x > r.Right {
			r.Right = x
		}
	}
	for _, y := range ys {
		if y < r.Top {
			r.Top = y
		}
		if y > r.Bottom {
			r.Bottom = y
		}
	}
	return r
}
