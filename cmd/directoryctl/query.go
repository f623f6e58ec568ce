package main

import (
	"fmt"
	"net/url"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"directory/internal/application/listutil"
	"directory/internal/domain/filter"
	"directory/internal/domain/roster"
)

// criteriaFlags binds one flag per standard filter.
type criteriaFlags struct {
	locations []string
	text      map[string]*string
}

func (c *criteriaFlags) bind(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringSliceVar(&c.locations, filter.Location, nil, "location codes, any of (NPD,NPS,CDC)")
	c.text = map[string]*string{}
	for _, name := range filter.Standard.Names() {
		if name == filter.Location {
			continue
		}
		c.text[name] = fs.String(strings.ReplaceAll(name, "_", "-"), "", "filter on "+strings.ReplaceAll(name, "_", " "))
	}
}

// criteria converts the flags through the same parser the dashboard uses.
func (c *criteriaFlags) criteria() filter.Criteria {
	q := url.Values{}
	for _, loc := range c.locations {
		q.Add(filter.Location, loc)
	}
	for name, v := range c.text {
		if *v != "" {
			q.Set(name, *v)
		}
	}
	return listutil.ParseCriteria(q, filter.Standard)
}

type queryOptions struct {
	root    *rootOptions
	filters criteriaFlags
	all     bool
	limit   int
}

func newQueryCmd(root *rootOptions) *cobra.Command {
	o := &queryOptions{root: root}
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Print staff matching the filter flags",
		Example: `  directoryctl query --location NPD,NPS --role speech
  directoryctl query --age-group Child --specialty autism`,
		Args: cobra.NoArgs,
		RunE: o.run,
	}
	o.filters.bind(cmd)
	cmd.Flags().BoolVar(&o.all, "all-fields", false, "include contact and photo columns")
	cmd.Flags().IntVar(&o.limit, "limit", 0, "print at most this many rows (0 for all)")
	return cmd
}

func (o *queryOptions) run(cmd *cobra.Command, args []string) error {
	cfg, err := o.root.loadConfig()
	if err != nil {
		return err
	}
	snap, err := loadRoster(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	matched, err := filter.Standard.Apply(snap.Records, snap.Headers, o.filters.criteria())
	if err != nil {
		return err
	}
	if o.limit > 0 && len(matched) > o.limit {
		matched = matched[:o.limit]
	}
	return printTable(cmd, snap.Headers, matched, o.all)
}

// printTable writes records as aligned columns. Cell line breaks become "; ".
func printTable(cmd *cobra.Command, headers roster.Headers, records []roster.Record, all bool) error {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	var cols []int
	var names []string
	for i, h := range headers {
		if !all && roster.IsSensitive(h) {
			continue
		}
		cols = append(cols, i)
		names = append(names, h)
	}
	fmt.Fprintln(tw, strings.Join(names, "\t"))
	for _, rec := range records {
		cells := make([]string, len(cols))
		for j, i := range cols {
			if i < len(rec) {
				cells[j] = strings.ReplaceAll(rec[i], "\n", "; ")
			}
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%d staff\n", len(records))
	return nil
}
