package client

// FollowThreshold is how close to the bottom (in pixels) the view must be
// for auto-scroll to stay engaged while deltas arrive.
const FollowThreshold = 80

// ShouldFollow reports whether the view should keep following the bottom as
// new content streams in. A reader who has scrolled up more than the
// threshold keeps their place; anyone at or near the bottom is carried along.
func ShouldFollow(scrollTop, viewportHeight, contentHeight float64) bool {
	distanceFromBottom := contentHeight - (scrollTop + viewportHeight)
	return distanceFromBottom <= FollowThreshold
}
