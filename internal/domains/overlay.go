package domains

import "context"

// Overlay wraps the CDP Overlay domain, used only by the highlight()
// action (spec.md §4.9) to flash a box around an element. Grounded on
// the equivalent helper in tomyan-hubcap's internal/chrome (Overlay is
// enabled alongside Page/DOM/Network/Security in the attach sequence).
type Overlay struct {
	sessionDomain
}

// Enable turns on the Overlay domain for this session.
func (o *Overlay) Enable(ctx context.Context) error {
	_, err := o.call(ctx, "Overlay.enable", nil)
	return err
}

// HighlightColor is an RGBA color as CDP's Overlay domain expects it.
type HighlightColor struct {
	R, G, B int
	A       float64
}

type rgba struct {
	R int     `json:"r"`
	G int     `json:"g"`
	B int     `json:"b"`
	A float64 `json:"a"`
}

type highlightConfig struct {
	ContentColor rgba `json:"contentColor"`
}

// HighlightNode draws a transient highlight box around nodeID.
func (o *Overlay) HighlightNode(ctx context.Context, nodeID int, color HighlightColor) error {
	_, err := o.call(ctx, "Overlay.highlightNode", struct {
		NodeID          int             `json:"nodeId"`
		HighlightConfig highlightConfig `json:"highlightConfig"`
	}{nodeID, highlightConfig{ContentColor: rgba{color.R, color.G, color.B, color.A}}})
	return err
}

// HideHighlight clears any highlight drawn by HighlightNode.
func (o *Overlay) HideHighlight(ctx context.Context) error {
	_, err := o.call(ctx, "Overlay.hideHighlight", nil)
	return err
}
