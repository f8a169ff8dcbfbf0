package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Clark-Hu/ai-tool-finder/internal/domain"
	"github.com/Clark-Hu/ai-tool-finder/internal/repository"
	"github.com/Clark-Hu/ai-tool-finder/internal/validation"
)

// ToolUpserter writes catalogue entries keyed by slug.
type ToolUpserter interface {
	UpsertBySlug(ctx context.Context, params repository.ToolUpsertParams) (domain.Tool, bool, error)
}

type seedTool struct {
	Slug          string   `json:"slug" validate:"required"`
	Name          string   `json:"name" validate:"required"`
	Description   string   `json:"description"`
	URL           string   `json:"url" validate:"required,url"`
	LogoURL       *string  `json:"logo_url"`
	Categories    []string `json:"categories" validate:"required,min=1"`
	PricingType   string   `json:"pricing_type" validate:"required"`
	StartingPrice *float64 `json:"starting_price" validate:"omitempty,min=0"`
}

type seedSummary struct {
	Inserted   int
	Updated    int
	Duplicates int
	Failed     int
}

// NewSeedCmd creates the 'seed' command.
func NewSeedCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Upsert catalogue entries from a JSON file",
		Long: `Reads a JSON array of tools and upserts each one on its slug.
Later entries that repeat a slug already seen in the file are skipped.`,
		Example: `  toolsctl seed --file tools.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(file)
			if err != nil {
				return fmt.Errorf("open seed file: %w", err)
			}
			defer f.Close()

			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			sum, err := runSeed(cmd.Context(), f, a.repo.Tools, cmd.OutOrStdout(), a.logger)
			if err != nil {
				return err
			}
			if sum.Failed > 0 {
				return fmt.Errorf("%d tools failed to seed", sum.Failed)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Path to the JSON seed file")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

// runSeed upserts every tool in r. Invalid or failing entries are reported and
// skipped; only an unreadable file aborts the run.
func runSeed(ctx context.Context, r io.Reader, up ToolUpserter, out io.Writer, logger *zap.Logger) (seedSummary, error) {
	var sum seedSummary

	var tools []seedTool
	if err := json.NewDecoder(r).Decode(&tools); err != nil {
		return sum, fmt.Errorf("decode seed file: %w", err)
	}

	v := validation.New()
	seen := make(map[string]struct{}, len(tools))
	for i, t := range tools {
		t.Slug = strings.TrimSpace(t.Slug)
		if _, dup := seen[t.Slug]; dup {
			logger.Warn("duplicate slug in seed file, skipping", zap.String("slug", t.Slug), zap.Int("index", i))
			sum.Duplicates++
			continue
		}
		seen[t.Slug] = struct{}{}

		params, err := t.params(v)
		if err != nil {
			fmt.Fprintf(out, "✗ %s: %v\n", describe(t, i), err)
			sum.Failed++
			continue
		}

		_, inserted, err := up.UpsertBySlug(ctx, params)
		if err != nil {
			if ctx.Err() != nil {
				return sum, ctx.Err()
			}
			logger.Error("seed tool failed", zap.String("slug", t.Slug), zap.Error(err))
			fmt.Fprintf(out, "✗ %s: %v\n", describe(t, i), err)
			sum.Failed++
			continue
		}
		if inserted {
			sum.Inserted++
		} else {
			sum.Updated++
		}
		fmt.Fprintf(out, "✓ %s\n", t.Name)
	}

	fmt.Fprintf(out, "\nSeed completed: %d inserted, %d updated, %d duplicates skipped, %d failed\n",
		sum.Inserted, sum.Updated, sum.Duplicates, sum.Failed)
	return sum, nil
}

func (t seedTool) params(v *validation.Validator) (repository.ToolUpsertParams, error) {
	if err := v.Validate(t); err != nil {
		return repository.ToolUpsertParams{}, err
	}
	if !domain.ValidSlug(t.Slug) {
		return repository.ToolUpsertParams{}, fmt.Errorf("slug %q must be lowercase and hyphen-delimited", t.Slug)
	}

	cats := make([]domain.Category, 0, len(t.Categories))
	for _, raw := range t.Categories {
		c := domain.Category(strings.TrimSpace(raw))
		if !c.Valid() {
			return repository.ToolUpsertParams{}, fmt.Errorf("unknown category %q", raw)
		}
		cats = append(cats, c)
	}
	pricing := domain.PricingType(strings.TrimSpace(t.PricingType))
	if !pricing.Valid() {
		return repository.ToolUpsertParams{}, fmt.Errorf("unknown pricing type %q", t.PricingType)
	}

	return repository.ToolUpsertParams{
		Slug:          t.Slug,
		Name:          strings.TrimSpace(t.Name),
		Description:   strings.TrimSpace(t.Description),
		URL:           strings.TrimSpace(t.URL),
		LogoURL:       t.LogoURL,
		Categories:    cats,
		PricingType:   pricing,
		StartingPrice: t.StartingPrice,
	}, nil
}

func describe(t seedTool, index int) string {
	if t.Name != "" {
		return t.Name
	}
	if t.Slug != "" {
		return t.Slug
	}
	return fmt.Sprintf("entry %d", index)
}
