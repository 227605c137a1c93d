package taiko

import (
	"github.com/suziejprince/taiko/internal/relative"
	iselector "github.com/suziejprince/taiko/internal/selector"
)

// Relative is one spatial constraint attached to a Selector via With,
// per spec.md §4.7.
type Relative struct {
	c iselector.RelativeConstraint
}

func constraint(kind relative.Kind, anchor Selector) Relative {
	return Relative{iselector.RelativeConstraint{Kind: kind, Anchor: anchor.inner}}
}

// ToLeftOf constrains a candidate to lie left of anchor.
func ToLeftOf(anchor Selector) Relative { return constraint(relative.Left, anchor) }

// ToRightOf constrains a candidate to lie right of anchor.
func ToRightOf(anchor Selector) Relative { return constraint(relative.Right, anchor) }

// Above constrains a candidate to lie above anchor.
func Above(anchor Selector) Relative { return constraint(relative.Above, anchor) }

// Below constrains a candidate to lie below anchor.
func Below(anchor Selector) Relative { return constraint(relative.Below, anchor) }

// Near constrains a candidate to lie within relative.NearThreshold
// pixels of anchor on any edge.
func Near(anchor Selector) Relative { return constraint(relative.Near, anchor) }
