package main

import (
	"errors"
	"flag"
	"fmt"

	"github.com/mgomes/loxscript/lox"
)

func analyzeCommand(args []string) error {
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	fs.SetOutput(new(flagErrorSink))
	var opts commonOptions
	opts.register(fs)
	if err := fs.Parse(args); err != nil {
		return &exitError{code: exitUsage, err: err}
	}

	remaining := fs.Args()
	if len(remaining) == 0 {
		return &exitError{code: exitUsage, err: errors.New("lox analyze: script path required")}
	}
	if _, err := opts.load(); err != nil {
		return err
	}

	input, err := readScript(remaining[0])
	if err != nil {
		return err
	}

	engine := lox.MustNewEngine(lox.Config{})
	script, err := engine.Compile(input)
	if err != nil {
		return fmt.Errorf("analysis compile failed: %w", err)
	}

	warnings := lox.Analyze(script.Statements())
	if len(warnings) == 0 {
		fmt.Println("No issues found")
		return nil
	}

	for _, warning := range warnings {
		line := max(warning.Pos.Line, 1)
		column := max(warning.Pos.Column, 1)
		fmt.Printf("%s:%d:%d: %s (%s)\n", remaining[0], line, column, warning.Message, warning.Function)
	}

	return fmt.Errorf("analysis found %d issue(s)", len(warnings))
}
