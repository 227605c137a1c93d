package domains

import (
	"context"
	"encoding/json"
	"fmt"
)

// DOM wraps the CDP DOM domain. Grounded on the resolveNodeID/
// resolveElementCenter helpers in tomyan-hubcap's
// internal/chrome/dom_helpers.go and the query helpers in
// internal/chrome/query.go.
type DOM struct {
	sessionDomain
}

// Enable turns on the DOM domain for this session.
func (d *DOM) Enable(ctx context.Context) error {
	_, err := d.call(ctx, "DOM.enable", nil)
	return err
}

// GetDocument returns the root document node's node id.
func (d *DOM) GetDocument(ctx context.Context) (rootNodeID int, err error) {
	raw, err := d.call(ctx, "DOM.getDocument", struct {
		Depth int `json:"depth"`
	}{-1})
	if err != nil {
		return 0, err
	}
	var result struct {
		Root struct {
			NodeID int `json:"nodeId"`
		} `json:"root"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return 0, fmt.Errorf("domains: decoding DOM.getDocument result: %w", err)
	}
	return result.Root.NodeID, nil
}

// QuerySelector resolves the first descendant of nodeID matching selector,
// or 0 if none match.
func (d *DOM) QuerySelector(ctx context.Context, nodeID int, selector string) (int, error) {
	raw, err := d.call(ctx, "DOM.querySelector", struct {
		NodeID   int    `json:"nodeId"`
		Selector string `json:"selector"`
	}{nodeID, selector})
	if err != nil {
		return 0, err
	}
	var result struct {
		NodeID int `json:"nodeId"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return 0, fmt.Errorf("domains: decoding DOM.querySelector result: %w", err)
	}
	return result.NodeID, nil
}

// QuerySelectorAll resolves every descendant of nodeID matching selector.
func (d *DOM) QuerySelectorAll(ctx context.Context, nodeID int, selector string) ([]int, error) {
	raw, err := d.call(ctx, "DOM.querySelectorAll", struct {
		NodeID   int    `json:"nodeId"`
		Selector string `json:"selector"`
	}{nodeID, selector})
	if err != nil {
		return nil, err
	}
	var result struct {
		NodeIDs []int `json:"nodeIds"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("domains: decoding DOM.querySelectorAll result: %w", err)
	}
	return result.NodeIDs, nil
}

// PerformSearch runs a DOM.performSearch query (used for XPath and plain
// text probes that querySelector cannot express) and returns a search id
// plus result count to page through with GetSearchResults.
func (d *DOM) PerformSearch(ctx context.Context, query string) (searchID string, resultCount int, err error) {
	raw, err := d.call(ctx, "DOM.performSearch", struct {
		Query                     string `json:"query"`
		IncludeUserAgentShadowDOM bool   `json:"includeUserAgentShadowDOM"`
	}{query, true})
	if err != nil {
		return "", 0, err
	}
	var result struct {
		SearchID    string `json:"searchId"`
		ResultCount int    `json:"resultCount"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", 0, fmt.Errorf("domains: decoding DOM.performSearch result: %w", err)
	}
	return result.SearchID, result.ResultCount, nil
}

// GetSearchResults pages through the results of a prior PerformSearch.
func (d *DOM) GetSearchResults(ctx context.Context, searchID string, fromIndex, toIndex int) ([]int, error) {
	raw, err := d.call(ctx, "DOM.getSearchResults", struct {
		SearchID  string `json:"searchId"`
		FromIndex int    `json:"fromIndex"`
		ToIndex   int    `json:"toIndex"`
	}{searchID, fromIndex, toIndex})
	if err != nil {
		return nil, err
	}
	var result struct {
		NodeIDs []int `json:"nodeIds"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("domains: decoding DOM.getSearchResults result: %w", err)
	}
	return result.NodeIDs, nil
}

// DiscardSearchResults frees a search created by PerformSearch.
func (d *DOM) DiscardSearchResults(ctx context.Context, searchID string) error {
	_, err := d.call(ctx, "DOM.discardSearchResults", struct {
		SearchID string `json:"searchId"`
	}{searchID})
	return err
}

// Attribute is one name/value pair from GetAttributes.
type Attribute struct {
	Name  string
	Value string
}

// GetAttributes returns nodeID's attributes as name/value pairs.
func (d *DOM) GetAttributes(ctx context.Context, nodeID int) ([]Attribute, error) {
	raw, err := d.call(ctx, "DOM.getAttributes", struct {
		NodeID int `json:"nodeId"`
	}{nodeID})
	if err != nil {
		return nil, err
	}
	var result struct {
		Attributes []string `json:"attributes"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("domains: decoding DOM.getAttributes result: %w", err)
	}
	attrs := make([]Attribute, 0, len(result.Attributes)/2)
	for i := 0; i+1 < len(result.Attributes); i += 2 {
		attrs = append(attrs, Attribute{Name: result.Attributes[i], Value: result.Attributes[i+1]})
	}
	return attrs, nil
}

// GetOuterHTML returns nodeID's serialized outer HTML.
func (d *DOM) GetOuterHTML(ctx context.Context, nodeID int) (string, error) {
	raw, err := d.call(ctx, "DOM.getOuterHTML", struct {
		NodeID int `json:"nodeId"`
	}{nodeID})
	if err != nil {
		return "", err
	}
	var result struct {
		OuterHTML string `json:"outerHTML"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", fmt.Errorf("domains: decoding DOM.getOuterHTML result: %w", err)
	}
	return result.OuterHTML, nil
}

// BoxModel is the subset of DOM.getBoxModel this library needs: the
// border-box quad, as eight numbers (x0,y0,x1,y1,x2,y2,x3,y3).
type BoxModel struct {
	Border  []float64
	Content []float64
	Width   int
	Height  int
}

// GetBoxModel returns nodeID's box geometry, used both for occlusion
// checks and for the relative-position engine's anchor rectangles.
func (d *DOM) GetBoxModel(ctx context.Context, nodeID int) (*BoxModel, error) {
	raw, err := d.call(ctx, "DOM.getBoxModel", struct {
		NodeID int `json:"nodeId"`
	}{nodeID})
	if err != nil {
		return nil, err
	}
	var result struct {
		Model struct {
			Content []float64 `json:"content"`
			Border  []float64 `json:"border"`
			Width   int       `json:"width"`
			Height  int       `json:"height"`
		} `json:"model"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("domains: decoding DOM.getBoxModel result: %w", err)
	}
	return &BoxModel{
		Border:  result.Model.Border,
		Content: result.Model.Content,
		Width:   result.Model.Width,
		Height:  result.Model.Height,
	}, nil
}

// ResolveNode maps a DOM nodeId to a Runtime remote object id, the
// currency Runtime.callFunctionOn expects.
func (d *DOM) ResolveNode(ctx context.Context, nodeID int) (objectID string, err error) {
	raw, err := d.call(ctx, "DOM.resolveNode", struct {
		NodeID int `json:"nodeId"`
	}{nodeID})
	if err != nil {
		return "", err
	}
	var result struct {
		Object struct {
			ObjectID string `json:"objectId"`
		} `json:"object"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", fmt.Errorf("domains: decoding DOM.resolveNode result: %w", err)
	}
	return result.Object.ObjectID, nil
}

// PushNodeByBackendIDToFrontend maps a backend node id (e.g. one found via
// Runtime.evaluate's DOM.pushNodeByPathToFrontend workaround for shadow
// roots) to a regular nodeId.
func (d *DOM) PushNodeByBackendIDToFrontend(ctx context.Context, backendNodeID int) (int, error) {
	raw, err := d.call(ctx, "DOM.pushNodesByBackendIdsToFrontend", struct {
		BackendNodeIDs []int `json:"backendNodeIds"`
	}{[]int{backendNodeID}})
	if err != nil {
		return 0, err
	}
	var result struct {
		NodeIDs []int `json:"nodeIds"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return 0, fmt.Errorf("domains: decoding DOM.pushNodesByBackendIdsToFrontend result: %w", err)
	}
	if len(result.NodeIDs) == 0 {
		return 0, fmt.Errorf("domains: backend node %d did not resolve", backendNodeID)
	}
	return result.NodeIDs[0], nil
}

// ShadowRoot is one entry from DescribeNode's shadowRoots list.
type ShadowRoot struct {
	NodeID   int    `json:"nodeId"`
	NodeType int    `json:"nodeType"`
	NodeName string `json:"nodeName"`
}

// DescribeNode returns nodeID's shadow roots, piercing into them,
// matching hubcap's QueryShadow's DOM.describeNode(pierce=true) step.
func (d *DOM) DescribeNode(ctx context.Context, nodeID int) ([]ShadowRoot, error) {
	raw, err := d.call(ctx, "DOM.describeNode", struct {
		NodeID int  `json:"nodeId"`
		Depth  int  `json:"depth"`
		Pierce bool `json:"pierce"`
	}{nodeID, 1, true})
	if err != nil {
		return nil, err
	}
	var result struct {
		Node struct {
			ShadowRoots []ShadowRoot `json:"shadowRoots"`
		} `json:"node"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("domains: decoding DOM.describeNode result: %w", err)
	}
	return result.Node.ShadowRoots, nil
}

// ScrollIntoViewIfNeeded scrolls nodeID's nearest scrollable ancestor so
// the node is in view, matching the first step of the action pipeline in
// spec.md §4.9.
func (d *DOM) ScrollIntoViewIfNeeded(ctx context.Context, nodeID int) error {
	_, err := d.call(ctx, "DOM.scrollIntoViewIfNeeded", struct {
		NodeID int `json:"nodeId"`
	}{nodeID})
	return err
}

// SetFileInputFiles attaches local files to an <input type=file> node,
// used by the attach() action.
func (d *DOM) SetFileInputFiles(ctx context.Context, nodeID int, files []string) error {
	_, err := d.call(ctx, "DOM.setFileInputFiles", struct {
		NodeID int      `json:"nodeId"`
		Files  []string `json:"files"`
	}{nodeID, files})
	return err
}
