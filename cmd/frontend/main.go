package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/teris-io/cli"

	"github.com/Neburalis/physlablang/pkg/ast"
	"github.com/Neburalis/physlablang/pkg/dump"
	"github.com/Neburalis/physlablang/pkg/lexer"
	"github.com/Neburalis/physlablang/pkg/parser"
	"github.com/Neburalis/physlablang/pkg/varlist"
)

var Description = strings.ReplaceAll(`
The Frontend reads a laboratory-report source file, lexes and parses it into an
Abstract Syntax Tree, and serializes that tree to the on-disk S-expression form
consumed by the backend and reversed-frontend tools.
`, "\n", " ")

var Frontend = cli.New(Description).
	WithArg(cli.NewArg("input", "The source (.physlab) file to be compiled")).
	WithArg(cli.NewArg("output", "The serialized AST (.ast) output").AsOptional()).
	WithAction(Handler)

func Handler(args []string, options map[string]string) int {
	setLogLevel()

	if len(args) < 1 {
		fmt.Fprintf(os.Stderr, "ERROR: Not enough arguments provided, use --help\n")
		return 1
	}

	input := args[0]
	output := "out.ast"
	if len(args) > 1 && args[1] != "" {
		output = args[1]
	}

	source, err := os.ReadFile(input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: Unable to open input file: %s\n", err)
		return 1
	}

	tokens, arena, symbols, err := lexer.Lex(source, input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: Unable to complete 'lexing' pass: %s\n", err)
		return 1
	}

	root, err := parser.Parse(tokens, arena, input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: Unable to complete 'parsing' pass: %s\n", err)
		return 1
	}

	if os.Getenv("EXPORT_AST") != "" {
		exportDebugDump(input, root, symbols)
	}

	out, err := os.Create(output)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: Unable to open output file: %s\n", err)
		return 1
	}
	defer out.Close()

	if _, err := out.WriteString(ast.Serialize(root, symbols)); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: Unable to write output file: %s\n", err)
		return 1
	}

	return 0
}

// exportDebugDump writes the Dot and HTML debug dumps to a log/ directory
// inside the current working directory (§6), named after the input file so
// multiple compiles don't clobber each other's dumps.
func exportDebugDump(input string, root *ast.Node, symbols *varlist.VarList) {
	if err := os.MkdirAll("log", 0o755); err != nil {
		logrus.WithError(err).Warn("could not create log/ directory for EXPORT_AST")
		return
	}
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))

	dotSource := dump.Dot(root, symbols, true)
	dotPath := filepath.Join("log", base+".ast.dot")
	if err := os.WriteFile(dotPath, []byte(dotSource), 0o644); err != nil {
		logrus.WithError(err).Warn("could not write EXPORT_AST dot dump")
	}

	htmlPath := filepath.Join("log", base+".ast.html")
	page := dump.HTML(input, dotSource)
	if err := os.WriteFile(htmlPath, []byte(page), 0o644); err != nil {
		logrus.WithError(err).Warn("could not write EXPORT_AST html dump")
	}
}

func main() { os.Exit(Frontend.Run(os.Args, os.Stdout)) }

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
