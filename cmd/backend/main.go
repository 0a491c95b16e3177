package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/teris-io/cli"

	"github.com/Neburalis/physlablang/pkg/ast"
	"github.com/Neburalis/physlablang/pkg/backend"
	"github.com/Neburalis/physlablang/pkg/dump"
	"github.com/Neburalis/physlablang/pkg/varlist"
)

var Description = strings.ReplaceAll(`
The Backend reads a serialized AST (.ast file), generates the stack+register
virtual machine assembly it describes, and writes it out as one instruction
per line.
`, "\n", " ")

var Backend = cli.New(Description).
	WithArg(cli.NewArg("input", "The serialized AST (.ast) file to be compiled")).
	WithArg(cli.NewArg("output", "The generated assembly (.asm) output").AsOptional()).
	WithAction(Handler)

func Handler(args []string, options map[string]string) int {
	setLogLevel()

	if len(args) < 1 {
		fmt.Fprintf(os.Stderr, "ERROR: Not enough arguments provided, use --help\n")
		return 1
	}

	input := args[0]
	output := "out.asm"
	if len(args) > 1 && args[1] != "" {
		output = args[1]
	}

	data, err := os.ReadFile(input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: Unable to open input file: %s\n", err)
		return 1
	}

	root, symbols, err := ast.Deserialize(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: Unable to complete 'deserializing' pass: %s\n", err)
		return 1
	}

	if os.Getenv("EXPORT_AST") != "" {
		exportDebugDump(input, root, symbols)
	}

	instructions, err := backend.Generate(root, symbols)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: Unable to complete 'codegen' pass: %s\n", err)
		return 1
	}

	out, err := os.Create(output)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: Unable to open output file: %s\n", err)
		return 1
	}
	defer out.Close()

	for _, line := range instructions {
		if _, err := fmt.Fprintf(out, "%s\n", line); err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: Unable to write output file: %s\n", err)
			return 1
		}
	}

	return 0
}

func exportDebugDump(input string, root *ast.Node, symbols *varlist.VarList) {
	if err := os.MkdirAll("log", 0o755); err != nil {
		logrus.WithError(err).Warn("could not create log/ directory for EXPORT_AST")
		return
	}
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))

	dotSource := dump.Dot(root, symbols, false)
	if err := os.WriteFile(filepath.Join("log", base+".ast.dot"), []byte(dotSource), 0o644); err != nil {
		logrus.WithError(err).Warn("could not write EXPORT_AST dot dump")
	}
	page := dump.HTML(input, dotSource)
	if err := os.WriteFile(filepath.Join("log", base+".ast.html"), []byte(page), 0o644); err != nil {
		logrus.WithError(err).Warn("could not write EXPORT_AST html dump")
	}
}

func main() { os.Exit(Backend.Run(os.Args, os.Stdout)) }

func setLogLevel() {
	lvl, err := logrus.ParseLevel(levelOrDefault())
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logrus.SetLevel(lvl)
}

func levelOrDefault() string {
	if v := os.Getenv("PHYSLAB_LOG_LEVEL"); v != "" {
		return v
	}
	return "info"
}
