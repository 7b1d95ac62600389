// Command exprgraph evaluates expressions and runs node-graph scenario
// scripts.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/alexflint/go-arg"
	"github.com/sanity-io/litter"
	"github.com/spf13/afero"

	"github.com/chazu/exprgraph/pkg/config"
	"github.com/chazu/exprgraph/pkg/editor"
	"github.com/chazu/exprgraph/pkg/errwrap"
	"github.com/chazu/exprgraph/pkg/graph"
	"github.com/chazu/exprgraph/pkg/metrics"
)

const program = "exprgraph"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := CLI(ctx, afero.NewOsFs(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", program, err)
		os.Exit(1)
	}
}

// Args is the CLI parsing structure and type of the parsed result. This
// particular struct is the top-most one.
type Args struct {
	Config string `arg:"--config,env:EXPRGRAPH_CONFIG" help:"yaml config file"`

	MetricsListen string `arg:"--metrics-listen" help:"serve prometheus metrics on this address"`

	EvalCmd *EvalArgs `arg:"subcommand:eval" help:"evaluate one expression"`

	RunCmd *RunArgs `arg:"subcommand:run" help:"run a scenario script"`
}

// Description returns a description string. Implementing this signature is
// part of the API for the cli library.
func (obj *Args) Description() string {
	return "node graph expression editor"
}

// EvalArgs is the CLI parsing structure for the `eval` subcommand.
type EvalArgs struct {
	Expr string `arg:"positional,required" help:"infix expression, eg: x * 2 + y"`

	Vars []string `arg:"--var,separate" help:"variable value, as name=value"`

	Dump bool `arg:"--dump" help:"print the parsed tree"`
}

// RunArgs is the CLI parsing structure for the `run` subcommand.
type RunArgs struct {
	Script string `arg:"positional,required" help:"scenario script path"`

	Watch bool `arg:"--watch" help:"re-run the script every time it changes"`

	JSON bool `arg:"--json" help:"print results as json"`
}

// CLI parses argv and runs the chosen subcommand. Files are read from fs and
// results are written to out.
func CLI(ctx context.Context, fs afero.Fs, argv []string, out io.Writer) error {
	args := Args{}
	parser, err := arg.NewParser(arg.Config{Program: program}, &args)
	if err != nil {
		// programming error
		return errwrap.Wrapf(err, "cli config error")
	}
	err = parser.Parse(argv)
	if err == arg.ErrHelp {
		parser.WriteHelp(out)
		return nil
	}
	if err != nil {
		return errwrap.Wrapf(err, "cli parse error")
	}

	cfg, err := config.Load(fs, args.Config)
	if err != nil {
		return err
	}
	if args.MetricsListen != "" {
		cfg.MetricsListen = args.MetricsListen
	}
	log.SetPrefix(*cfg.LogPrefix)

	switch {
	case args.EvalCmd != nil:
		return args.EvalCmd.Run(cfg, out)

	case args.RunCmd != nil:
		var m *metrics.Metrics
		if cfg.MetricsListen != "" {
			m = metrics.New()
			m.Listen = cfg.MetricsListen
			if err := m.Start(); err != nil {
				return err
			}
			defer m.Stop()
			log.Printf("serving metrics on %s", m.Listen)
		}
		return args.RunCmd.Run(ctx, fs, NewApp(cfg, m), out)
	}

	// print help if no subcommands are set
	parser.WriteHelp(out)
	return nil
}

// parseVars turns name=value pairs into a map.
func parseVars(vars []string) (map[string]float64, error) {
	values := make(map[string]float64, len(vars))
	for _, v := range vars {
		name, text, ok := strings.Cut(v, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("variable %q is not name=value", v)
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
		if err != nil {
			return nil, errwrap.Wrapf(err, "variable %s", name)
		}
		values[name] = f
	}
	return values, nil
}

// Run evaluates the expression on a single-node graph, so that the printed
// value is formatted exactly as the node output would show it.
func (obj *EvalArgs) Run(cfg *config.Config, out io.Writer) error {
	values, err := parseVars(obj.Vars)
	if err != nil {
		return err
	}
	data, err := graph.ParseExprData(obj.Expr)
	if err != nil {
		return err
	}
	for name := range values {
		if data.Slot(name) < 0 {
			return fmt.Errorf("expression has no variable %q", name)
		}
	}

	ed := &editor.Editor{Precision: *cfg.Precision}
	g := graph.New()
	n, err := g.Add("", data)
	if err != nil {
		return err
	}
	for i, name := range data.Bindings {
		if err := ed.SetInput(g, n.In(i), values[name]); err != nil {
			return err
		}
	}

	if obj.Dump {
		fmt.Fprintln(out, data.AST)
		fmt.Fprintln(out, litter.Sdump(data.AST))
	}
	for i := range data.Bindings {
		d := ed.Input(g, n.In(i))
		fmt.Fprintf(out, "%s = %s\n", d.Label, d.Text)
	}
	fmt.Fprintln(out, ed.Output(g, n.Out(0)).Text)
	return nil
}

// Run runs the script once, then again on every change if Watch is set.
func (obj *RunArgs) Run(ctx context.Context, fs afero.Fs, app *App, out io.Writer) error {
	err := obj.once(fs, app, out)
	if !obj.Watch {
		return err
	}
	if err != nil {
		log.Printf("%v", err)
	}
	log.Printf("watching %s", obj.Script)
	return watchFile(ctx, obj.Script, func() {
		if err := obj.once(fs, app, out); err != nil {
			log.Printf("%v", err)
		}
	})
}

func (obj *RunArgs) once(fs afero.Fs, app *App, out io.Writer) error {
	source, err := afero.ReadFile(fs, obj.Script)
	if err != nil {
		return errwrap.Wrapf(err, "can't read script")
	}
	result := app.Evaluate(string(source))

	if obj.JSON {
		b, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s\n", b)
	} else {
		printResult(out, result)
	}

	if n := len(result.Errors); n > 0 {
		return fmt.Errorf("%s: %d error(s)", obj.Script, n)
	}
	return nil
}

func printResult(out io.Writer, result EvalResult) {
	for _, e := range result.Errors {
		if e.Line > 0 {
			fmt.Fprintf(out, "error: line %d: %s\n", e.Line, e.Message)
			continue
		}
		fmt.Fprintf(out, "error: %s\n", e.Message)
	}
	for _, w := range result.Warnings {
		fmt.Fprintf(out, "warning: %s\n", w.Message)
	}
	for _, p := range result.Pins {
		label := p.Display.Label
		if label == "" {
			label = "-"
		}
		fmt.Fprintf(out, "%-12s %-5s %-6s %s\n", p.Node, p.Pin, label, p.Display.Text)
	}
}
