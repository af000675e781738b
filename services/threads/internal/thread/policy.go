package thread

// Policy bounds how much of a discussion tree one request returns. Depth is
// counted below the top level; width is the page size applied to the direct
// children of a node at a given depth.
type Policy struct {
	// MaxDepth is how many reply levels below a top-level comment are
	// hydrated eagerly. Nodes at MaxDepth report their children only via
	// HiddenReplyCount.
	MaxDepth int
	// Step narrows the first reply level relative to the top-level limit.
	Step int
	// Floor is the page size at every level past the first, and the minimum
	// anywhere.
	Floor int
}

// DefaultPolicy matches the product behaviour: seven reply levels, first
// level five narrower than the page, then a constant small fanout.
var DefaultPolicy = Policy{MaxDepth: 7, Step: 5, Floor: 5}

// Width returns the child page size at the given depth for a request whose
// top-level page size is topLimit. Depth 0 is the top level itself.
func (p Policy) Width(depth, topLimit int) int {
	switch {
	case depth <= 0:
		return topLimit
	case depth == 1:
		if w := topLimit - p.Step; w > p.Floor {
			return w
		}
		return p.Floor
	default:
		return p.Floor
	}
}
