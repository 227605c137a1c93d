package selector

import (
	"context"
	"fmt"

	"github.com/suziejprince/taiko/internal/domains"
)

// ResolveInShadow finds innerSelector inside the shadow root attached to
// the first element matching hostSelector, the shadow-DOM piercing query
// the normal Resolve path cannot express since DOM.performSearch does not
// cross shadow boundaries.
//
// Grounded on hubcap's QueryShadow: DOM.querySelector on the host,
// DOM.describeNode(pierce) to read its shadowRoots, then DOM.querySelector
// again rooted at the shadow root's node id.
func ResolveInShadow(ctx context.Context, dom *domains.DOM, rootNodeID int, hostSelector, innerSelector string) (Match, error) {
	hostNodeID, err := dom.QuerySelector(ctx, rootNodeID, hostSelector)
	if err != nil {
		return Match{}, fmt.Errorf("selector: resolving shadow host %q: %w", hostSelector, err)
	}
	if hostNodeID == 0 {
		return Match{}, &NotFoundError{Description: fmt.Sprintf("shadow host %q", hostSelector)}
	}

	roots, err := dom.DescribeNode(ctx, hostNodeID)
	if err != nil {
		return Match{}, fmt.Errorf("selector: describing shadow host %q: %w", hostSelector, err)
	}
	if len(roots) == 0 {
		return Match{}, &NotFoundError{Description: fmt.Sprintf("shadow host %q has no shadow root", hostSelector)}
	}

	innerNodeID, err := dom.QuerySelector(ctx, roots[0].NodeID, innerSelector)
	if err != nil {
		return Match{}, fmt.Errorf("selector: resolving %q inside shadow root: %w", innerSelector, err)
	}
	if innerNodeID == 0 {
		return Match{}, &NotFoundError{Description: fmt.Sprintf("%q inside shadow host %q", innerSelector, hostSelector)}
	}

	rect, err := rectangle(ctx, dom, innerNodeID)
	if err != nil {
		return Match{}, fmt.Errorf("selector: reading shadow match geometry: %w", err)
	}
	return Match{NodeID: innerNodeID, Rect: rect}, nil
}
