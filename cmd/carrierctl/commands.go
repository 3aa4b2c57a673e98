package main

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/carrier-dashboard/backend/internal/models"
	"github.com/spf13/cobra"
)

func newRecordsCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "records",
		Short: "List the carrier records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var records []models.Record
			status, err := apiClient().do(cmd.Context(), http.MethodGet, "/records", nil, &records)
			if err != nil {
				return err
			}
			warnDegraded(cmd, status)
			if limit > 0 && len(records) > limit {
				records = records[:limit]
			}
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), records)
			}
			return printRecords(cmd.OutOrStdout(), records)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "show at most n records (0 for all)")
	return cmd
}

func printRecords(out io.Writer, records []models.Record) error {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		c := r.Carrier()
		rows = append(rows, []string{
			strconv.FormatInt(c.ID, 10), string(c.EntityType),
			deref(c.OperatingStatus), deref(c.LegalName), deref(c.CreatedDT),
		})
	}
	return renderTable(out, []string{"ID", "ENTITY", "STATUS", "LEGAL NAME", "CREATED"}, rows, 0)
}

func deref(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}

type chartSeries struct {
	Points []models.ChartPoint `json:"points"`
}

func newChartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chart",
		Short: "Show the monthly out-of-service counts",
		Long: `Show the out-of-service carriers and brokers per month of creation.
Cells marked with * come from a manual override.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var series chartSeries
			status, err := apiClient().do(cmd.Context(), http.MethodGet, "/chart/out-of-service", nil, &series)
			if err != nil {
				return err
			}
			warnDegraded(cmd, status)
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), series)
			}
			return printChart(cmd.OutOrStdout(), series.Points)
		},
	}
}

func printChart(out io.Writer, points []models.ChartPoint) error {
	rows := make([][]string, 0, len(points))
	for _, p := range points {
		rows = append(rows, []string{p.Month, chartCell(p, models.EntityCarrier), chartCell(p, models.EntityBroker)})
	}
	return renderTable(out, []string{"MONTH", "CARRIER", "BROKER"}, rows, 1, 2)
}

func chartCell(p models.ChartPoint, t models.EntityType) string {
	s := strconv.Itoa(p.Count(t))
	for _, o := range p.Overridden {
		if o == t {
			return s + "*"
		}
	}
	return s
}

func printOverrides(out io.Writer, overrides []models.Override) error {
	rows := make([][]string, 0, len(overrides))
	for _, o := range overrides {
		rows = append(rows, []string{o.Month, string(o.EntityType), strconv.Itoa(o.Count), o.UpdatedAt.Format("2006-01-02 15:04:05")})
	}
	return renderTable(out, []string{"MONTH", "ENTITY", "COUNT", "UPDATED"}, rows, 2)
}

func newOverrideCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "override",
		Short: "Set or clear manual chart values",
		Long: `Manage manual replacements of chart cells.

Available subcommands:
  list  - List the stored overrides
  set   - Replace one month's counter for an entity type
  clear - Remove one override, or all of them with --all`,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List the stored overrides",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var overrides []models.Override
			if _, err := apiClient().do(cmd.Context(), http.MethodGet, "/chart/overrides", nil, &overrides); err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), overrides)
			}
			return printOverrides(cmd.OutOrStdout(), overrides)
		},
	}

	setCmd := &cobra.Command{
		Use:     "set MONTH ENTITY COUNT",
		Short:   "Replace one month's counter for an entity type",
		Example: "  carrierctl override set 2023-05 CARRIER 7",
		Args:    cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			count, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("count must be an integer: %q", args[2])
			}
			body := map[string]any{
				"month":      args[0],
				"entityType": strings.ToUpper(args[1]),
				"count":      count,
			}
			var o models.Override
			if _, err := apiClient().do(cmd.Context(), http.MethodPut, "/chart/overrides", body, &o); err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), o)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s = %d\n", o.Month, o.EntityType, o.Count)
			return nil
		},
	}

	var all bool
	clearCmd := &cobra.Command{
		Use:   "clear [MONTH ENTITY]",
		Short: "Remove one override, or all of them with --all",
		Args: func(cmd *cobra.Command, args []string) error {
			if all {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(2)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			c := apiClient()
			if all {
				var res struct {
					Removed int64 `json:"removed"`
				}
				if _, err := c.do(cmd.Context(), http.MethodDelete, "/chart/overrides", nil, &res); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed %d overrides\n", res.Removed)
				return nil
			}
			path := fmt.Sprintf("/chart/overrides/%s/%s", url.PathEscape(args[0]), url.PathEscape(strings.ToUpper(args[1])))
			if _, err := c.do(cmd.Context(), http.MethodDelete, path, nil, nil); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cleared %s %s\n", args[0], strings.ToUpper(args[1]))
			return nil
		},
	}
	clearCmd.Flags().BoolVar(&all, "all", false, "remove every override")

	cmd.AddCommand(listCmd, setCmd, clearCmd)
	return cmd
}

func newPivotCmd() *cobra.Command {
	var (
		preset     string
		rows       []string
		cols       []string
		aggregator string
		val        string
		union      bool
	)
	cmd := &cobra.Command{
		Use:   "pivot",
		Short: "Cross-tabulate the records",
		Long: `Cross-tabulate the records by a server preset or by explicit attributes.
Without flags the default preset is used.`,
		Example: `  carrierctl pivot
  carrierctl pivot --rows entity_type --cols operating_status --aggregator Count
  carrierctl pivot --rows entity_type --aggregator Average --val power_units`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]any{"preset": preset}
			if len(rows) > 0 || len(cols) > 0 || aggregator != "" || val != "" {
				settings := models.PivotSettings{
					Rows:           rows,
					Cols:           cols,
					AggregatorName: aggregator,
				}
				if val != "" {
					settings.Vals = []string{val}
				}
				req["settings"] = settings
			}
			if union {
				req["schema"] = "union"
			}

			var ct models.CrossTab
			status, err := apiClient().do(cmd.Context(), http.MethodPost, "/pivot/crosstab", req, &ct)
			if err != nil {
				return err
			}
			warnDegraded(cmd, status)
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), ct)
			}
			return printCrossTab(cmd.OutOrStdout(), ct)
		},
	}
	cmd.Flags().StringVar(&preset, "preset", "", "server preset name")
	cmd.Flags().StringSliceVar(&rows, "rows", nil, "row attributes")
	cmd.Flags().StringSliceVar(&cols, "cols", nil, "column attributes")
	cmd.Flags().StringVar(&aggregator, "aggregator", "", "Count, Sum, Average or \"Count Unique Values\"")
	cmd.Flags().StringVar(&val, "val", "", "value attribute of the aggregator")
	cmd.Flags().BoolVar(&union, "union", false, "build the header from every record's keys")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "List the server's pivot presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var res struct {
				Presets     []models.PivotSettings `json:"presets"`
				Aggregators []string               `json:"aggregators"`
				Renderers   []string               `json:"renderers"`
			}
			if _, err := apiClient().do(cmd.Context(), http.MethodGet, "/pivot/presets", nil, &res); err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), res)
			}
			rows := make([][]string, 0, len(res.Presets))
			for _, p := range res.Presets {
				rows = append(rows, []string{p.Name,
					strings.Join(p.Rows, ","), strings.Join(p.Cols, ","),
					p.AggregatorName, strings.Join(p.Vals, ","), p.RendererName})
			}
			return renderTable(cmd.OutOrStdout(), []string{"NAME", "ROWS", "COLS", "AGGREGATOR", "VALS", "RENDERER"}, rows)
		},
	}
	cmd.AddCommand(presetsCmd)
	return cmd
}

func printCrossTab(out io.Writer, ct models.CrossTab) error {
	header := []string{strings.Join(ct.Settings.Rows, " / ")}
	for _, ck := range ct.ColKeys {
		header = append(header, keyLabel(ck))
	}
	header = append(header, "Totals")

	numeric := make([]int, 0, len(header)-1)
	for i := 1; i < len(header); i++ {
		numeric = append(numeric, i)
	}

	rows := make([][]string, 0, len(ct.RowKeys)+1)
	for _, rk := range ct.RowKeys {
		row := []string{keyLabel(rk)}
		cells := ct.Cells[models.FlatKey(rk)]
		for _, ck := range ct.ColKeys {
			v, ok := cells[models.FlatKey(ck)]
			row = append(row, formatValue(v, ok))
		}
		v, ok := ct.RowTotals[models.FlatKey(rk)]
		row = append(row, formatValue(v, ok))
		rows = append(rows, row)
	}

	totals := []string{"Totals"}
	for _, ck := range ct.ColKeys {
		v, ok := ct.ColTotals[models.FlatKey(ck)]
		totals = append(totals, formatValue(v, ok))
	}
	totals = append(totals, formatValue(ct.GrandTotal, true))
	rows = append(rows, totals)

	return renderTable(out, header, rows, numeric...)
}

func keyLabel(keys []string) string {
	if len(keys) == 1 && keys[0] == "" {
		return "null"
	}
	return strings.Join(keys, " / ")
}

func formatValue(v float64, ok bool) string {
	if !ok {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func newRefreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Fetch the records from the data source again",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var res struct {
				Records   int    `json:"records"`
				Degraded  bool   `json:"degraded"`
				FetchedAt string `json:"fetchedAt"`
				Error     string `json:"error"`
			}
			if _, err := apiClient().do(cmd.Context(), http.MethodPost, "/records/refresh", nil, &res); err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), res)
			}
			if res.Degraded {
				return fmt.Errorf("data source unavailable: %s", res.Error)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "fetched %d records at %s\n", res.Records, res.FetchedAt)
			return nil
		},
	}
}
