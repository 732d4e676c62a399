// Command wavmrun is the reference runner for this module's core: it loads
// an IR module, links it against a StubResolver, instantiates it in a fresh
// compartment, invokes an entry export, and reports the result — the
// external harness spec.md §6 describes as out of this module's own scope.
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/a4a881d4/WAVM"
	"github.com/a4a881d4/WAVM/ir"
)

var (
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	trapStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFB86C")).Bold(true)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#90EE90"))
	headStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#87CEEB")).Bold(true)
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "wavmrun",
		Short: "Link, instantiate and invoke a function in an IR module",
	}

	var stubsPath string
	var trapStubs bool
	var gcAfter bool

	runCmd := &cobra.Command{
		Use:   "run <module.ir.json> <entry> [args...]",
		Short: "Instantiate a module against stub imports and invoke an export",
		Args:  cobra.MinimumNArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			modulePath, entry, callArgs := args[0], args[1], args[2:]
			run(modulePath, entry, callArgs, stubsPath, trapStubs, gcAfter)
		},
	}
	runCmd.Flags().StringVar(&stubsPath, "stubs", "", "YAML manifest seeding specific stub import values")
	runCmd.Flags().BoolVar(&trapStubs, "trap-stubs", false, "make every synthesized stub function trap instead of returning zero results")
	runCmd.Flags().BoolVar(&gcAfter, "gc-after", false, "run collectGarbage after the call and report before/after object counts")

	rootCmd.AddCommand(runCmd)

	if err := rootCmd.Execute(); err != nil {
		exitWithError("%v", err)
	}
}

func run(modulePath, entry string, callArgs []string, stubsPath string, trapStubs, gcAfter bool) {
	module, err := loadModule(modulePath)
	if err != nil {
		exitWithError("loading module: %v", err)
	}

	compartment := wavm.NewCompartment()
	resolver := &wavm.StubResolver{Compartment: compartment, Trap: trapStubs}

	if stubsPath != "" {
		manifest, err := loadStubManifest(stubsPath)
		if err != nil {
			exitWithError("loading stub manifest: %v", err)
		}
		resolver.Manifest = manifest
	}

	link := wavm.LinkModule(module, resolver)
	if !link.Success {
		fmt.Fprintln(os.Stderr, trapStyle.Render("link failed"))
		for _, m := range link.MissingImports {
			fmt.Fprintf(os.Stderr, "  missing import: %s\n", m)
		}
		for _, m := range link.Mismatches {
			fmt.Fprintf(os.Stderr, "  type mismatch: %s: want %s, got %s\n", m.Import, m.Want, m.Got)
		}
		os.Exit(1)
	}

	cfg := wavm.NewRuntimeConfig()
	inst, err := wavm.InstantiateModule(compartment, module, link.ResolvedImports, modulePath, cfg)
	if err != nil {
		reportInstantiationFailure(err)
		os.Exit(1)
	}

	obj := inst.GetExport(entry)
	if obj == nil {
		exitWithError("module has no export named %q", entry)
	}
	fn, ok := obj.(*wavm.Function)
	if !ok {
		exitWithError("export %q is a %s, not a function", entry, obj.Kind())
	}

	callWords, err := parseArgs(fn.Type, callArgs)
	if err != nil {
		exitWithError("%v", err)
	}

	results, trap := wavm.InvokeFunction(cfg.Context(), fn, callWords)
	if trap != nil {
		fmt.Fprintln(os.Stderr, trapStyle.Render(fmt.Sprintf("call trapped: %v", trap)))
		os.Exit(1)
	}

	fmt.Println(okStyle.Render(formatResults(fn.Type, results)))

	if gcAfter {
		before := statsLine(compartment)
		compartment.CollectGarbage()
		after := statsLine(compartment)
		fmt.Println(headStyle.Render("compartment object counts (instances/functions/tables/memories/globals/exceptionTypes)"))
		fmt.Printf("  before gc: %s\n", before)
		fmt.Printf("  after  gc: %s\n", after)
	}
}

func statsLine(c *wavm.Compartment) string {
	instances, functions, tables, memories, globals, exceptionTypes := c.Stats()
	return fmt.Sprintf("%d/%d/%d/%d/%d/%d", instances, functions, tables, memories, globals, exceptionTypes)
}

func reportInstantiationFailure(err error) {
	var trap *wavm.InstantiationTrap
	if asInstantiationTrap(err, &trap) {
		fmt.Fprintln(os.Stderr, trapStyle.Render(fmt.Sprintf("instantiation trap: %s", trap.Kind)))
		if trap.Cause != nil {
			fmt.Fprintf(os.Stderr, "  cause: %v\n", trap.Cause)
		}
		return
	}
	fmt.Fprintln(os.Stderr, errorStyle.Render(fmt.Sprintf("instantiation failed: %v", err)))
}

func asInstantiationTrap(err error, out **wavm.InstantiationTrap) bool {
	trap, ok := err.(*wavm.InstantiationTrap)
	if ok {
		*out = trap
	}
	return ok
}

func parseArgs(ft ir.FunctionType, raw []string) ([]uint64, error) {
	params := ft.Params()
	if params.Len() != len(raw) {
		return nil, fmt.Errorf("entry expects %d argument(s), got %d", params.Len(), len(raw))
	}
	words := make([]uint64, len(raw))
	for i, s := range raw {
		switch params.At(i) {
		case ir.ValueTypeI32:
			v, err := strconv.ParseInt(s, 10, 32)
			if err != nil {
				return nil, fmt.Errorf("argument %d: %w", i, err)
			}
			words[i] = uint64(uint32(v))
		case ir.ValueTypeI64:
			v, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("argument %d: %w", i, err)
			}
			words[i] = uint64(v)
		default:
			return nil, fmt.Errorf("argument %d: unsupported command-line parameter type %s", i, params.At(i))
		}
	}
	return words, nil
}

func formatResults(ft ir.FunctionType, results []uint64) string {
	rt := ft.Results()
	if rt.Len() == 0 {
		return "(no results)"
	}
	out := "results:"
	for i, w := range results {
		out += fmt.Sprintf(" %s=%d", rt.At(i), w)
	}
	return out
}

func exitWithError(format string, args ...interface{}) {
	fmt.Fprintln(os.Stderr, errorStyle.Render(fmt.Sprintf(format, args...)))
	os.Exit(1)
}
