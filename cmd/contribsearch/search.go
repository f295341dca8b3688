package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/jask/contribsearch/internal/export"
	"github.com/jask/contribsearch/internal/service"
)

var (
	searchCity  string
	searchLimit int
	searchCSV   string
	searchLoads []string
)

var searchCmd = &cobra.Command{
	Use:   "search NAME...",
	Short: "Search contributions for one or more donor names",
	Long: `Search contributions for each NAME. A single argument may hold several
comma separated names; "Last, First" stays one name.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringVar(&searchCity, "city", "", "restrict matches to a city")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 0, "matches per name (default search.default_limit)")
	searchCmd.Flags().StringVar(&searchCSV, "csv", "", "write results as CSV to this file, or - for stdout")
	searchCmd.Flags().StringSliceVar(&searchLoads, "load", nil, "itcont files to ingest before searching")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	b, err := openBackend(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer b.Close()

	if _, err := b.load(ctx, searchLoads); err != nil {
		return err
	}
	svc, err := b.searchService(cfg.Search)
	if err != nil {
		return err
	}

	limit := cfg.Search.DefaultLimit
	if searchLimit > 0 {
		limit = searchLimit
	}
	resp, err := svc.BulkSearch(ctx, service.BulkRequest{
		Names: splitNames(args),
		City:  searchCity,
		Limit: limit,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch searchCSV {
	case "":
		renderResults(out, resp)
		return nil
	case "-":
		return export.WriteCSV(out, resp.ExportRows())
	default:
		f, err := os.Create(searchCSV)
		if err != nil {
			return err
		}
		if err := export.WriteCSV(f, resp.ExportRows()); err != nil {
			_ = f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		renderSummary(out, resp)
		fmt.Fprintf(out, "Exported %d results to %s\n", len(resp.Results), searchCSV)
		return nil
	}
}

// splitNames splits arguments on commas unless the comma separates a
// "Last, First" pair: a single word followed by a first name with at most a
// middle initial.
func splitNames(args []string) []string {
	var out []string
	for _, arg := range args {
		parts := strings.Split(arg, ",")
		for i := 0; i < len(parts); i++ {
			p := strings.TrimSpace(parts[i])
			if p == "" {
				continue
			}
			if !strings.Contains(p, " ") && i+1 < len(parts) {
				next := strings.TrimSpace(parts[i+1])
				if isFirstName(next) {
					p = p + ", " + next
					i++
				}
			}
			out = append(out, p)
		}
	}
	return out
}

func isFirstName(s string) bool {
	f := strings.Fields(s)
	switch len(f) {
	case 1:
		return true
	case 2:
		return len([]rune(strings.TrimSuffix(f[1], "."))) == 1
	}
	return false
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	amountStyle = cellStyle.Align(lipgloss.Right)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle    = lipgloss.NewStyle().Faint(true)
)

func renderResults(w io.Writer, resp *service.BulkResponse) {
	if len(resp.Results) > 0 {
		rows := make([][]string, 0, len(resp.Results))
		for _, r := range resp.ExportRows() {
			rows = append(rows, []string{
				r.SearchTerm, r.MatchedName, r.City, r.State,
				export.FormatCents(r.AmountCents), r.Date, r.Tier,
			})
		}
		t := table.New().
			Border(lipgloss.NormalBorder()).
			Headers("Search", "Name", "City", "State", "Amount", "Date", "Tier").
			Rows(rows...).
			StyleFunc(func(row, col int) lipgloss.Style {
				switch {
				case row == table.HeaderRow:
					return headerStyle
				case col == 4:
					return amountStyle
				default:
					return cellStyle
				}
			})
		fmt.Fprintln(w, t.Render())
	}
	renderSummary(w, resp)
}

func renderSummary(w io.Writer, resp *service.BulkResponse) {
	for _, s := range resp.Summary {
		switch {
		case s.Error != "":
			fmt.Fprintf(w, "%s: %s\n", s.SearchTerm, errorStyle.Render(s.Error))
		case s.MatchesFound == 0:
			fmt.Fprintf(w, "%s: %s\n", s.SearchTerm, dimStyle.Render("no matches"))
		default:
			fmt.Fprintf(w, "%s: %d matches, $%s\n", s.SearchTerm, s.MatchesFound, export.FormatCents(s.TotalAmountCents))
		}
	}
}
