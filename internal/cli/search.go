package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Clark-Hu/ai-tool-finder/internal/discovery"
	"github.com/Clark-Hu/ai-tool-finder/internal/domain"
)

// Discoverer runs discovery queries.
type Discoverer interface {
	Discover(ctx context.Context, q discovery.Query) (discovery.Result, error)
}

type searchOptions struct {
	category   string
	pricing    []string
	sort       string
	page       int
	limit      int
	jsonOutput bool
}

// NewSearchCmd creates the 'search' command.
func NewSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search and rank the catalogue",
		Example: `  toolsctl search "ai video maker"
  toolsctl search --category Image --pricing Free,Freemium --sort rating`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := opts.query(args)
			if err != nil {
				return err
			}

			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			return runSearch(cmd.Context(), a.discovery, q, opts.jsonOutput, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&opts.category, "category", "c", "", "Only tools in this category")
	cmd.Flags().StringSliceVarP(&opts.pricing, "pricing", "p", nil, "Only tools with one of these pricing types")
	cmd.Flags().StringVarP(&opts.sort, "sort", "s", "", "popular, rating, reviews or newest")
	cmd.Flags().IntVar(&opts.page, "page", 1, "Page number")
	cmd.Flags().IntVarP(&opts.limit, "limit", "l", 20, "Results per page")
	cmd.Flags().BoolVarP(&opts.jsonOutput, "json", "j", false, "Output as JSON")

	return cmd
}

func (o searchOptions) query(args []string) (discovery.Query, error) {
	q := discovery.Query{Page: o.page, Limit: o.limit}
	if len(args) == 1 {
		q.Text = strings.TrimSpace(args[0])
	}
	if o.page < 1 || o.limit < 1 {
		return q, fmt.Errorf("page and limit must be positive")
	}

	if o.category != "" {
		found := false
		for _, c := range domain.Categories {
			if strings.EqualFold(string(c), o.category) {
				q.Filter.Category = c
				found = true
				break
			}
		}
		if !found {
			return q, fmt.Errorf("unknown category %q", o.category)
		}
	}
	for _, raw := range o.pricing {
		p := domain.PricingType(strings.TrimSpace(raw))
		if !p.Valid() {
			return q, fmt.Errorf("unknown pricing type %q", raw)
		}
		q.Filter.Pricing = append(q.Filter.Pricing, p)
	}

	order, err := discovery.ParseSortOrder(o.sort)
	if err != nil {
		return q, err
	}
	q.Sort = order
	return q, nil
}

type searchRow struct {
	Slug         string  `json:"slug"`
	Name         string  `json:"name"`
	PricingType  string  `json:"pricing_type"`
	AvgRating    float64 `json:"avg_rating"`
	TotalRatings int     `json:"total_ratings"`
}

func runSearch(ctx context.Context, d Discoverer, q discovery.Query, jsonOutput bool, out io.Writer) error {
	res, err := d.Discover(ctx, q)
	if err != nil {
		return err
	}

	rows := make([]searchRow, 0, len(res.Tools))
	for _, v := range res.Tools {
		rows = append(rows, searchRow{
			Slug:         v.Slug,
			Name:         v.Name,
			PricingType:  string(v.PricingType),
			AvgRating:    v.AvgRating,
			TotalRatings: v.TotalRatings,
		})
	}

	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"tools":    rows,
			"page":     res.Page,
			"total":    res.Total,
			"has_more": res.HasMore,
			"degraded": res.Degraded,
		})
	}

	if len(rows) == 0 {
		fmt.Fprintln(out, "No tools found.")
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SLUG\tNAME\tPRICING\tRATING\tREVIEWS")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.1f\t%d\n", r.Slug, r.Name, r.PricingType, r.AvgRating, r.TotalRatings)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "\nPage %d, %d of %d matching tools", res.Page, len(rows), res.Total)
	if res.Degraded {
		fmt.Fprint(out, " (catalogue partially loaded)")
	}
	fmt.Fprintln(out)
	return nil
}
