package main

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/CommerceBoard/geemvc/config"
	"github.com/CommerceBoard/geemvc/handler"
	"github.com/CommerceBoard/geemvc/manifest"
)

type options struct {
	file    string
	config  string
	strict  bool
	noColor bool
}

// NewRootCommand creates the routectl command tree.
func NewRootCommand() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "routectl",
		Short: "Inspect handler manifests",
		Long: `routectl builds the handler table of a YAML or TOML manifest, lists its
mappings in resolution order and resolves sample requests against it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			if opts.noColor {
				color.NoColor = true
			}
		},
	}

	root.PersistentFlags().StringVarP(&opts.file, "file", "f", "", "manifest file (.yaml, .yml or .toml)")
	root.PersistentFlags().StringVarP(&opts.config, "config", "c", "", "settings file")
	root.PersistentFlags().BoolVar(&opts.strict, "strict", false, "fail on ambiguous mappings")
	root.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "disable colored output")
	_ = root.MarkPersistentFlagRequired("file")

	root.AddCommand(newCheckCommand(opts))
	root.AddCommand(newResolveCommand(opts))
	root.AddCommand(newRoutesCommand(opts))

	return root
}

// build loads the manifest and builds its table. Ambiguity warnings are
// returned instead of logged.
func build(opts *options) (*handler.Table, []ambiguity, error) {
	settings, err := config.Load(opts.config)
	if err != nil {
		return nil, nil, err
	}
	if opts.strict {
		settings.Routing.StrictAmbiguity = true
	}

	m, err := manifest.Load(opts.file)
	if err != nil {
		return nil, nil, err
	}
	ctrls, err := m.Declarations(nil)
	if err != nil {
		return nil, nil, err
	}

	core := newAmbiguityCore()
	hopts, err := settings.HandlerOptions(zap.New(core))
	if err != nil {
		return nil, nil, err
	}

	table, err := handler.NewBuilder(hopts...).Add(ctrls...).Build()
	if err != nil {
		return nil, core.All(), err
	}
	return table, core.All(), nil
}

func printWarnings(w io.Writer, warnings []ambiguity) {
	warn := color.New(color.FgYellow)
	for _, a := range warnings {
		warn.Fprintf(w, "warning: %s shadows %s for %s\n", a.Selected, a.Shadowed, a.Key)
	}
}

func newCheckCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Build the handler table and report problems",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			table, warnings, err := build(opts)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			printWarnings(out, warnings)
			color.New(color.FgGreen).Fprintf(out, "ok: %d controllers, %d handlers\n",
				len(table.Controllers()), table.Len())
			return nil
		},
	}
}

func newRoutesCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "List mappings in resolution order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			table, warnings, err := build(opts)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "HANDLER\tMETHOD\tPATH\tPARAMS\tPRIORITY")
			for _, c := range table.Candidates() {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n",
					c.Name(),
					c.Key.Method(),
					c.Key.Path(),
					strings.Join(c.Key.Predicates().Strings(), " "),
					c.Key.Priority(),
				)
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			printWarnings(out, warnings)
			return nil
		},
	}
}

func newResolveCommand(opts *options) *cobra.Command {
	var (
		method string
		params []string
	)

	cmd := &cobra.Command{
		Use:   "resolve PATH",
		Short: "Resolve a request and print the selected handler",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := parseParams(params)
			if err != nil {
				return err
			}

			table, _, err := build(opts)
			if err != nil {
				return err
			}

			req := &handler.Request{Path: args[0], Method: strings.ToUpper(method), Params: values}
			m, err := handler.NewResolver(table).ResolveRequest(req)
			if err != nil {
				var mna *handler.MethodNotAllowedError
				if errors.As(err, &mna) {
					return fmt.Errorf("405 %w", err)
				}
				return fmt.Errorf("404 %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s\n", color.GreenString(m.Candidate.Name()), m.Candidate.Key)
			for _, name := range slices.Sorted(maps.Keys(m.Vars)) {
				fmt.Fprintf(out, "  %s = %s\n", color.CyanString(name), strconv.Quote(m.Vars[name]))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&method, "method", "X", "GET", "request method")
	cmd.Flags().StringArrayVarP(&params, "param", "p", nil, "request parameter as name=value, repeatable")

	return cmd
}

// parseParams parses name=value pairs. A bare name is a parameter with an
// empty value.
func parseParams(pairs []string) (url.Values, error) {
	values := url.Values{}
	for _, p := range pairs {
		name, value, _ := strings.Cut(p, "=")
		if name == "" {
			return nil, fmt.Errorf("invalid parameter %q", p)
		}
		values.Add(name, value)
	}
	return values, nil
}
