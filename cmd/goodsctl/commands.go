package main

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/utafrali/goodssearch/internal/domain"
)

const defaultReindexBatch = 100

// facade is the search service surface the commands drive.
type facade interface {
	Index(ctx context.Context, id int64) error
	Remove(ctx context.Context, id int64) error
	Search(ctx context.Context, req *domain.SearchRequest) (*domain.SearchResult, error)
}

// productLister pages through saleable product ids.
type productLister interface {
	ListProductIDs(ctx context.Context, page, size int) ([]int64, error)
}

// deps are opened lazily so --help works without any backend.
type deps struct {
	service  facade
	products productLister
	logger   *slog.Logger
	close    func() error
}

type opener func(ctx context.Context) (*deps, error)

func newRootCmd(open opener) *cobra.Command {
	root := &cobra.Command{
		Use:           "goodsctl",
		Short:         "Administer the goods search index",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newIndexCmd(open),
		newRemoveCmd(open),
		newSearchCmd(open),
		newReindexCmd(open),
	)
	return root
}

// withDeps opens the dependencies for one command run and closes them after.
func withDeps(cmd *cobra.Command, open opener, fn func(ctx context.Context, d *deps) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	d, err := open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if d.close != nil {
			_ = d.close()
		}
	}()
	return fn(ctx, d)
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid product id %q", arg)
	}
	return id, nil
}

func newIndexCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "index <id>",
		Short: "Build and store the search document of one product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withDeps(cmd, open, func(ctx context.Context, d *deps) error {
				if err := d.service.Index(ctx, id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "indexed %d\n", id)
				return nil
			})
		},
	}
}

func newRemoveCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Delete the search document of one product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withDeps(cmd, open, func(ctx context.Context, d *deps) error {
				if err := d.service.Remove(ctx, id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed %d\n", id)
				return nil
			})
		},
	}
}

func newSearchCmd(open opener) *cobra.Command {
	var (
		page    int
		size    int
		filters []string
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "search <key>",
		Short: "Run a faceted search",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := parseFilters(filters)
			if err != nil {
				return err
			}
			req := &domain.SearchRequest{Key: args[0], Page: page, Size: size, Filter: filter}

			return withDeps(cmd, open, func(ctx context.Context, d *deps) error {
				res, err := d.service.Search(ctx, req)
				if err != nil {
					return err
				}
				if asJSON {
					out, err := json.MarshalIndent(res, "", "  ")
					if err != nil {
						return fmt.Errorf("encode result: %w", err)
					}
					fmt.Fprintln(cmd.OutOrStdout(), string(out))
					return nil
				}
				printResult(cmd, res)
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "1-based result page")
	cmd.Flags().IntVarP(&size, "size", "n", 0, "page size (0 uses the service default)")
	cmd.Flags().StringArrayVarP(&filters, "filter", "f", nil, "facet filter as name=value, repeatable")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output the result as JSON")
	return cmd
}

func parseFilters(raw []string) (map[string]any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	filter := make(map[string]any, len(raw))
	for _, f := range raw {
		name, value, ok := strings.Cut(f, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid filter %q, want name=value", f)
		}
		filter[name] = strings.TrimSpace(value)
	}
	return filter, nil
}

func printResult(cmd *cobra.Command, res *domain.SearchResult) {
	fmt.Fprintf(cmd.OutOrStdout(), "%d hits, %d pages\n", res.Total, res.TotalPages)
	for _, g := range res.Items {
		fmt.Fprintf(cmd.OutOrStdout(), "  [%d] %s\n", g.ID, g.SubTitle)
	}
	if len(res.Categories) > 0 {
		names := make([]string, 0, len(res.Categories))
		for _, c := range res.Categories {
			names = append(names, c.Name)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "categories: %s\n", strings.Join(names, ", "))
	}
	if len(res.Brands) > 0 {
		names := make([]string, 0, len(res.Brands))
		for _, b := range res.Brands {
			names = append(names, b.Name)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "brands: %s\n", strings.Join(names, ", "))
	}
	for _, s := range res.Specs {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", s.Name, strings.Join(s.Options, ", "))
	}
}

func newReindexCmd(open opener) *cobra.Command {
	var batch int

	cmd := &cobra.Command{
		Use:   "reindex",
		Short: "Index every saleable product",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if batch < 1 {
				return fmt.Errorf("batch must be positive, got %d", batch)
			}
			return withDeps(cmd, open, func(ctx context.Context, d *deps) error {
				indexed, failed, err := reindex(ctx, d, batch)
				fmt.Fprintf(cmd.OutOrStdout(), "indexed %d, failed %d\n", indexed, failed)
				if err != nil {
					return err
				}
				if failed > 0 {
					return fmt.Errorf("%d products failed to index", failed)
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&batch, "batch", defaultReindexBatch, "product ids fetched per page")
	return cmd
}

// reindex pages through the product ids and indexes each one sequentially.
// A product that fails is logged and skipped; listing failures abort.
func reindex(ctx context.Context, d *deps, batch int) (indexed, failed int, err error) {
	for page := 1; ; page++ {
		ids, err := d.products.ListProductIDs(ctx, page, batch)
		if err != nil {
			return indexed, failed, fmt.Errorf("list products page %d: %w", page, err)
		}

		for _, id := range ids {
			if err := ctx.Err(); err != nil {
				return indexed, failed, err
			}
			if err := d.service.Index(ctx, id); err != nil {
				failed++
				d.logger.WarnContext(ctx, "reindex skipped product",
					slog.Int64("spu_id", id),
					slog.String("error", err.Error()),
				)
				continue
			}
			indexed++
		}

		if len(ids) < batch {
			return indexed, failed, nil
		}
	}
}
