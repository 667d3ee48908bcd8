package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mgomes/loxscript/lox"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
)

// Exit statuses follow the sysexits convention.
const (
	exitUsage   = 64
	exitStatic  = 65
	exitRuntime = 70
	exitIO      = 74
)

func main() {
	os.Exit(runMain(os.Args))
}

func runMain(args []string) int {
	err := runCLI(args)
	if err == nil {
		return 0
	}
	fmt.Fprintln(os.Stderr, renderError(err))
	return exitCode(err)
}

func runCLI(args []string) error {
	if len(args) < 2 {
		return usageError()
	}
	switch args[1] {
	case "run":
		return runCommand(args[2:])
	case "repl":
		return replCommand(args[2:])
	case "lsp":
		return lspCommand(args[2:])
	case "analyze":
		return analyzeCommand(args[2:])
	case "tokens":
		return tokensCommand(args[2:])
	case "parse":
		return parseCommand(args[2:])
	case "fmt":
		return fmtCommand(args[2:])
	case "help", "-h", "--help":
		printUsage()
		return nil
	default:
		return usageError()
	}
}

func runCommand(args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(new(flagErrorSink))
	var opts commonOptions
	opts.register(fs)
	checkOnly := fs.Bool("check", false, "only compile the script without executing")
	maxDepth := fs.Int("max-depth", 0, "maximum call depth (overrides lox.toml)")
	if err := fs.Parse(args); err != nil {
		return &exitError{code: exitUsage, err: err}
	}
	remaining := fs.Args()
	if len(remaining) == 0 {
		return &exitError{code: exitUsage, err: errors.New("lox run: script path required")}
	}

	cfg, err := opts.load()
	if err != nil {
		return err
	}
	if *maxDepth < 0 {
		return &exitError{code: exitUsage, err: fmt.Errorf("lox run: -max-depth must not be negative, got %d", *maxDepth)}
	}
	if *maxDepth > 0 {
		cfg.Interpreter.MaxCallDepth = *maxDepth
	}

	input, err := readScript(remaining[0])
	if err != nil {
		return err
	}
	engine, err := lox.NewEngine(lox.Config{MaxCallDepth: cfg.Interpreter.MaxCallDepth, Stdout: os.Stdout})
	if err != nil {
		return &exitError{code: exitUsage, err: err}
	}
	script, err := engine.Compile(input)
	if err != nil {
		return fmt.Errorf("compile failed: %w", err)
	}
	if *checkOnly {
		return nil
	}
	if _, err := script.Execute(context.Background(), nil); err != nil {
		return fmt.Errorf("execution failed: %w", err)
	}
	return nil
}

func usageError() error {
	printUsage()
	return &exitError{code: exitUsage, err: errors.New("invalid command")}
}

func printUsage() {
	prog := filepath.Base(os.Args[0])
	fmt.Fprintf(os.Stderr, "Usage: %s <command> [flags] [script]\n", prog)
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  run <script>      execute a script")
	fmt.Fprintln(os.Stderr, "  repl              start the interactive prompt")
	fmt.Fprintln(os.Stderr, "  lsp               serve the language server over stdio")
	fmt.Fprintln(os.Stderr, "  analyze <script>  report unreachable code and unused locals")
	fmt.Fprintln(os.Stderr, "  tokens <script>   dump the token stream as YAML")
	fmt.Fprintln(os.Stderr, "  parse <script>    dump the syntax tree as YAML")
	fmt.Fprintln(os.Stderr, "  fmt [-w] [-check] <path...>  reindent source files")
	fmt.Fprintln(os.Stderr, "Flags:")
	fmt.Fprintln(os.Stderr, "  -v")
	fmt.Fprintln(os.Stderr, "    increase log verbosity (repeatable)")
	fmt.Fprintln(os.Stderr, "  -config <path>")
	fmt.Fprintln(os.Stderr, "    use this lox.toml instead of searching upward")
	fmt.Fprintln(os.Stderr, "  -check")
	fmt.Fprintln(os.Stderr, "    run: only compile the script without executing")
	fmt.Fprintln(os.Stderr, "  -max-depth int")
	fmt.Fprintln(os.Stderr, "    run: maximum call depth")
}

type flagErrorSink struct{}

func (flagErrorSink) Write(p []byte) (int, error) {
	return len(p), nil
}

// exitError pins a process exit status to an error.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func exitCode(err error) int {
	var exitErr *exitError
	if errors.As(err, &exitErr) {
		return exitErr.code
	}
	var compileErr *lox.CompileError
	if errors.As(err, &compileErr) {
		return exitStatic
	}
	var runtimeErr *lox.RuntimeError
	if errors.As(err, &runtimeErr) {
		return exitRuntime
	}
	return 1
}

// renderError colors the headline of an error. Code frames and stack
// frames after it stay plain.
func renderError(err error) string {
	head, rest, found := strings.Cut(err.Error(), "\n")
	if !found {
		return errorStyle.Render(head)
	}
	return errorStyle.Render(head) + "\n" + rest
}

// verbosityFlag counts repeated -v flags. An explicit -v=N sets the level.
type verbosityFlag int

func (v *verbosityFlag) String() string {
	if v == nil {
		return "0"
	}
	return strconv.Itoa(int(*v))
}

func (v *verbosityFlag) Set(value string) error {
	if value == "true" {
		*v++
		return nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid verbosity %q", value)
	}
	*v = verbosityFlag(n)
	return nil
}

func (v *verbosityFlag) IsBoolFlag() bool { return true }

// commonOptions are the flags every subcommand accepts.
type commonOptions struct {
	verbosity  verbosityFlag
	configPath string
}

func (o *commonOptions) register(fs *flag.FlagSet) {
	fs.Var(&o.verbosity, "v", "increase log verbosity (repeatable)")
	fs.StringVar(&o.configPath, "config", "", "path to lox.toml")
}

// load reads the config file and configures logging from it. Flag values
// take precedence over the file.
func (o *commonOptions) load() (*fileConfig, error) {
	var (
		cfg *fileConfig
		err error
	)
	if o.configPath != "" {
		cfg, err = loadConfig(o.configPath)
	} else {
		cfg, err = findAndLoadConfig(".")
	}
	if err != nil {
		return nil, err
	}

	if o.verbosity != 0 {
		cfg.Log.Verbosity = int(o.verbosity)
	}
	var logPath *string
	if cfg.Log.Path != "" {
		logPath = &cfg.Log.Path
	}
	commonlog.Configure(cfg.Log.Verbosity, logPath)
	return cfg, nil
}

func readScript(path string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", &exitError{code: exitIO, err: fmt.Errorf("resolve script path: %w", err)}
	}
	input, err := os.ReadFile(absPath)
	if err != nil {
		return "", &exitError{code: exitIO, err: fmt.Errorf("read script: %w", err)}
	}
	return string(input), nil
}
