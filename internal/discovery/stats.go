package discovery

import "github.com/Clark-Hu/ai-tool-finder/internal/domain"

// AggregateStats rolls samples up per tool in a single pass. When only is
// non-nil, samples for tools outside it are ignored. Tools without samples are
// absent from the result and read as zero Stats.
func AggregateStats(samples []domain.RatingSample, only map[string]struct{}) map[string]domain.Stats {
	type acc struct {
		n     int
		sum   int
		trues [len(domain.Tags)]int
	}

	groups := make(map[string]*acc)
	for _, s := range samples {
		if only != nil {
			if _, ok := only[s.ToolID]; !ok {
				continue
			}
		}
		g := groups[s.ToolID]
		if g == nil {
			g = &acc{}
			groups[s.ToolID] = g
		}
		g.n++
		g.sum += s.Stars
		for _, tag := range domain.Tags {
			if s.Tags[tag] {
				g.trues[tag]++
			}
		}
	}

	out := make(map[string]domain.Stats, len(groups))
	for id, g := range groups {
		var st domain.Stats
		st.TotalRatings = g.n
		if g.n > 0 {
			st.AvgRating = float64(g.sum) / float64(g.n)
		}
		for _, tag := range domain.Tags {
			st.TagCounts[tag] = g.trues[tag]
			if g.n > 0 {
				st.TagPcts[tag] = 100 * float64(g.trues[tag]) / float64(g.n)
			}
		}
		out[id] = st
	}
	return out
}

// mergeViews joins tools with their stats, preserving tool order.
func mergeViews(tools []domain.Tool, stats map[string]domain.Stats) []domain.ToolView {
	views := make([]domain.ToolView, len(tools))
	for i, t := range tools {
		views[i] = domain.ToolView{Tool: t, Stats: stats[t.ID]}
	}
	return views
}
