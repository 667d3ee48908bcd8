package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/mgomes/loxscript/lox"
)

// tokensCommand prints the token stream as YAML. Tokens that did scan are
// printed even when the source has lexical errors.
func tokensCommand(args []string) error {
	path, err := dumpArgs("tokens", args)
	if err != nil {
		return err
	}
	input, err := readScript(path)
	if err != nil {
		return err
	}

	tokens, scanErrors := lox.Scan(input)
	out, err := lox.DumpTokens(tokens)
	if err != nil {
		return fmt.Errorf("encode tokens: %w", err)
	}
	if _, err := os.Stdout.Write(out); err != nil {
		return &exitError{code: exitIO, err: fmt.Errorf("write output: %w", err)}
	}

	if len(scanErrors) > 0 {
		return fmt.Errorf("scan failed: %w", &lox.CompileError{Errors: scanErrors})
	}
	return nil
}

func parseCommand(args []string) error {
	path, err := dumpArgs("parse", args)
	if err != nil {
		return err
	}
	input, err := readScript(path)
	if err != nil {
		return err
	}

	engine := lox.MustNewEngine(lox.Config{})
	script, err := engine.Compile(input)
	if err != nil {
		return fmt.Errorf("compile failed: %w", err)
	}
	out, err := lox.DumpProgram(script.Statements())
	if err != nil {
		return fmt.Errorf("encode syntax tree: %w", err)
	}
	if _, err := os.Stdout.Write(out); err != nil {
		return &exitError{code: exitIO, err: fmt.Errorf("write output: %w", err)}
	}
	return nil
}

func dumpArgs(name string, args []string) (string, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(new(flagErrorSink))
	var opts commonOptions
	opts.register(fs)
	if err := fs.Parse(args); err != nil {
		return "", &exitError{code: exitUsage, err: err}
	}
	remaining := fs.Args()
	if len(remaining) == 0 {
		return "", &exitError{code: exitUsage, err: fmt.Errorf("lox %s: script path required", name)}
	}
	if _, err := opts.load(); err != nil {
		return "", err
	}
	return remaining[0], nil
}
