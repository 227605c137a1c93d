package relative

import "testing"

func TestSatisfies_LeftRightAboveBelow(t *testing.T) {
	anchor := Rectangle{Left: 100, Top: 100, Right: 200, Bottom: 150}

	left := Rectangle{Left: 10, Top: 100, Right: 50, Bottom: 150}
	if !Satisfies(Left, left, anchor) {
		t.Error("expected left candidate to satisfy Left")
	}
	if Satisfies(Right, left, anchor) {
		t.Error("left candidate should not satisfy Right")
	}

	below := Rectangle{Left: 100, Top: 200, Right: 200, Bottom: 250}
	if !Satisfies(Below, below, anchor) {
		t.Error("expected below candidate to satisfy Below")
	}

	above := Rectangle{Left: 100, Top: 0, Right: 200, Bottom: 50}
	if !Satisfies(Above, above, anchor) {
		t.Error("expected above candidate to satisfy Above")
	}
}

func TestSatisfies_Near(t *testing.T) {
	anchor := Rectangle{Left: 100, Top: 100, Right: 200, Bottom: 150}

	nearby := Rectangle{Left: 100, Top: 100, Right: 200, Bottom: 150}
	nearby.Left = anchor.Left + 10 // within 30px of anchor.Left
	if !Satisfies(Near, nearby, anchor) {
		t.Error("expected a candidate 10px off an edge to satisfy Near")
	}

	far := Rectangle{Left: 1000, Top: 1000, Right: 1100, Bottom: 1050}
	if Satisfies(Near, far, anchor) {
		t.Error("expected a far-away candidate not to satisfy Near")
	}
}

func TestMatches_ANDsAllConstraints(t *testing.T) {
	anchor := Rectangle{Left: 100, Top: 100, Right: 200, Bottom: 150}
	constraints := []Constraint{
		{Kind: Right, AnchorRects: []Rectangle{anchor}},
		{Kind: Below, AnchorRects: []Rectangle{anchor}},
	}

	matchesBoth := Rectangle{Left: 250, Top: 200, Right: 300, Bottom: 250}
	if !Matches(matchesBoth, constraints) {
		t.Error("expected candidate satisfying both constraints to match")
	}

	onlyRight := Rectangle{Left: 250, Top: 0, Right: 300, Bottom: 50}
	if Matches(onlyRight, constraints) {
		t.Error("expected candidate satisfying only one constraint to fail AND")
	}
}

func TestRank_SortsByAscendingScore(t *testing.T) {
	anchor := Rectangle{Left: 100, Top: 100, Right: 200, Bottom: 150}
	constraints := []Constraint{{Kind: Right, AnchorRects: []Rectangle{anchor}}}

	near := Rectangle{Left: 210, Top: 100, Right: 260, Bottom: 150}
	far := Rectangle{Left: 600, Top: 600, Right: 660, Bottom: 650}

	items := []Candidate[string]{
		{Value: "far", Rect: far, Score: Score(far, constraints)},
		{Value: "near", Rect: near, Score: Score(near, constraints)},
	}

	ranked := Rank(items)
	if len(ranked) != 2 {
		t.Fatalf("len(ranked) = %d, want 2", len(ranked))
	}
	if ranked[0].Value != "near" {
		t.Errorf("ranked[0].Value = %q, want %q", ranked[0].Value, "near")
	}
}
