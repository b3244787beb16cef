// Command uscc is the USC compiler driver (spec.md §6): parse a source
// file, optionally optimize and pretty-print its AST/IR, and optionally
// emit LLVM bitcode or target assembly by delegating to external
// `llvm-as`/`llc` binaries (spec.md §9 -- neither is hand-rolled here).
//
// Structured on raymyers-ralph-cc-go/cmd/ralph-cc/main.go: explicit
// out/errOut writers threaded through a cobra.Command factory so the
// driver is testable without touching the real os.Stdout, a thin
// main() -> os.Exit(run()) wrapper, and pflag-registered flags.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/spf13/cobra"

	"github.com/harborlang/uscc/internal/ast"
	"github.com/harborlang/uscc/internal/config"
	"github.com/harborlang/uscc/internal/diag"
	"github.com/harborlang/uscc/internal/irgen"
	"github.com/harborlang/uscc/internal/opt"
	"github.com/harborlang/uscc/internal/parse"
)

// ErrCompileFailed is returned by RunE when compilation produced
// diagnostics; cobra's SilenceErrors keeps it from being printed twice.
var ErrCompileFailed = errors.New("uscc: compilation failed")

func main() {
	os.Exit(run())
}

func run() int {
	rootCmd := newRootCmd(os.Stdout, os.Stderr)
	// pflag reads "-emit-ir" as a run of one-letter flags, so the
	// single-dash spellings of the long flags are rewritten to "--".
	args := append([]string(nil), os.Args[1:]...)
	for i, a := range args {
		if strings.HasPrefix(a, "-emit-") || strings.HasPrefix(a, "-config") {
			args[i] = "-" + a
		}
	}
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		return 1
	}
	return 0
}

type flags struct {
	optimize   bool
	emitAST    bool
	emitIR     bool
	emitBC     string
	emitAsm    string
	configPath string
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	var f flags

	rootCmd := &cobra.Command{
		Use:           "uscc <source>",
		Short:         "Compile a USC source file to LLVM IR",
		Version:       "0.1.0",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return doCompile(args[0], f, out, errOut)
		},
	}
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)

	rootCmd.Flags().BoolVarP(&f.optimize, "O", "O", false, "run the optimization pipeline before emitting output")
	rootCmd.Flags().BoolVar(&f.emitAST, "emit-ast", false, "pretty-print the parsed AST to stdout")
	rootCmd.Flags().BoolVar(&f.emitIR, "emit-ir", false, "print the textual LLVM IR to stdout")
	rootCmd.Flags().StringVar(&f.emitBC, "emit-bc", "", "write LLVM bitcode to `file` via llvm-as")
	rootCmd.Flags().StringVar(&f.emitAsm, "emit-asm", "", "write target assembly to `file` via llc")
	rootCmd.Flags().StringVar(&f.configPath, "config", "", "path to a .usccrc.yaml config file (default: auto-discovered next to <source>)")

	return rootCmd
}

func doCompile(source string, f flags, out, errOut io.Writer) error {
	cfg, err := loadConfig(source, f.configPath)
	if err != nil {
		fmt.Fprintf(errOut, "uscc: %v\n", err)
		return ErrCompileFailed
	}
	applyConfigDefaults(&f, cfg)

	src, err := os.Open(source)
	if err != nil {
		fmt.Fprintf(errOut, "uscc: %v\n", err)
		return ErrCompileFailed
	}
	defer src.Close()

	sink := &diag.Sink{}
	p, err := parse.New(source, src, sink)
	if err != nil {
		fmt.Fprintf(errOut, "uscc: %v\n", err)
		return ErrCompileFailed
	}
	prog := p.ParseProgram()

	if !sink.OK() {
		diag.FprintAll(errOut, sink)
		return ErrCompileFailed
	}

	if f.emitAST {
		ast.Fprint(out, prog)
	}

	m, err := irgen.Emit(prog, p.Strings, p.NeedsPrintf())
	if err != nil {
		fmt.Fprintf(errOut, "uscc: %v\n", err)
		return ErrCompileFailed
	}

	if f.optimize {
		if err := opt.RunAll(m, opt.Standard(), opt.Config{Out: errOut}); err != nil {
			fmt.Fprintf(errOut, "uscc: %v\n", err)
			return ErrCompileFailed
		}
	}

	ir := m.String()
	if f.emitIR {
		fmt.Fprintln(out, ir)
	}
	if f.emitBC != "" {
		if err := assembleWith("llvm-as", ir, f.emitBC); err != nil {
			fmt.Fprintf(errOut, "uscc: -emit-bc: %v\n", err)
			return ErrCompileFailed
		}
	}
	if f.emitAsm != "" {
		if err := assembleWith("llc", ir, f.emitAsm); err != nil {
			fmt.Fprintf(errOut, "uscc: -emit-asm: %v\n", err)
			return ErrCompileFailed
		}
	}
	return nil
}

func loadConfig(source, explicitPath string) (*config.Config, error) {
	if explicitPath != "" {
		return config.Load(explicitPath)
	}
	return config.Discover(source)
}

// applyConfigDefaults fills in flags left at their zero value from cfg,
// letting a project pin defaults without every invocation repeating them
// (spec.md §4.10). An explicitly passed flag always wins; cobra doesn't
// give us "was this flag set" here without threading *pflag.FlagSet
// through, so instead config only ever raises the bar (true/non-empty),
// matching this driver's use case of turning ON optional output by
// default rather than silently overriding an explicit false/off flag.
func applyConfigDefaults(f *flags, cfg *config.Config) {
	if !f.optimize && cfg.OptLevel != "" && cfg.OptLevel != "0" {
		f.optimize = true
	}
	if !f.emitAST && cfg.EmitAST {
		f.emitAST = true
	}
	if !f.emitIR && cfg.EmitIR {
		f.emitIR = true
	}
	if f.emitBC == "" && cfg.EmitBC != "" {
		f.emitBC = cfg.EmitBC
	}
	if f.emitAsm == "" && cfg.EmitAsm != "" {
		f.emitAsm = cfg.EmitAsm
	}
}

// assembleWith pipes textual LLVM IR through an external tool
// (llvm-as/llc) on $PATH, writing its output to outPath. Neither
// bitcode encoding nor target-specific codegen is hand-rolled here
// (spec.md §1, §9): if the tool isn't found, that's a diagnosable
// environment problem, not a bug in this compiler.
func assembleWith(tool, ir, outPath string) error {
	path, err := exec.LookPath(tool)
	if err != nil {
		return fmt.Errorf("%s not found on $PATH: %w", tool, err)
	}
	cmd := exec.Command(path, "-o", outPath)
	cmd.Stdin = strings.NewReader(ir)
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
