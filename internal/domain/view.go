package domain

// Stats is the rating rollup for a single tool. The zero value means "no ratings".
type Stats struct {
	TotalRatings int
	AvgRating    float64
	TagCounts    [tagCount]int
	TagPcts      [tagCount]float64
}

// Count returns how many raters ticked the tag.
func (s Stats) Count(t Tag) int {
	return s.TagCounts[t]
}

// Pct returns the share of raters, in percent, who ticked the tag.
func (s Stats) Pct(t Tag) float64 {
	return s.TagPcts[t]
}

// ToolView is a Tool joined with its request-time rating statistics.
type ToolView struct {
	Tool
	Stats
}

// PopularityScore is the primary key of the "popular" ordering.
func (v ToolView) PopularityScore() float64 {
	return v.AvgRating * float64(v.TotalRatings)
}
