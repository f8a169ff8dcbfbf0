package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Clark-Hu/ai-tool-finder/internal/domain"
)

// ToolCounter reports catalogue size.
type ToolCounter interface {
	Count(ctx context.Context) (int64, error)
	ListFirstByName(ctx context.Context, n int) ([]domain.Tool, error)
}

// NewCountCmd creates the 'count' command.
func NewCountCmd() *cobra.Command {
	var first int

	cmd := &cobra.Command{
		Use:   "count",
		Short: "Print the number of stored tools",
		Example: `  toolsctl count
  toolsctl count --first 25`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			return runCount(cmd.Context(), a.repo.Tools, first, cmd.OutOrStdout())
		},
	}

	cmd.Flags().IntVarP(&first, "first", "n", 10, "How many tools to list by name")

	return cmd
}

func runCount(ctx context.Context, src ToolCounter, first int, out io.Writer) error {
	total, err := src.Count(ctx)
	if err != nil {
		return fmt.Errorf("count tools: %w", err)
	}
	fmt.Fprintf(out, "Total tools in database: %d\n", total)

	if first <= 0 || total == 0 {
		return nil
	}
	tools, err := src.ListFirstByName(ctx, first)
	if err != nil {
		return fmt.Errorf("list tools: %w", err)
	}
	fmt.Fprintf(out, "\nFirst %d tools:\n", len(tools))
	for _, t := range tools {
		fmt.Fprintf(out, "  - %s (%s)\n", t.Name, t.Slug)
	}
	return nil
}
