package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/teris-io/cli"
	"n2t.dev/toolchain/pkg/jack"
)

var Description = strings.ReplaceAll(`
The Jack Analyzer takes one or more Jack (.jack) source files and performs syntax analysis
on each: tokenizing the source and parsing it against the Jack grammar. For every input file
it emits a flattened parse tree as a sibling '.xml' file, one line per token or production
boundary, in source order. No semantic analysis or code generation is performed.
`, "\n", " ")

var JackAnalyzer = cli.New(Description).
	WithArg(cli.NewArg("inputs", "The Jack (.jack) source file(s) to analyze").
		AsOptional().WithType(cli.TypeString)).
	WithAction(Handler)

func Handler(args []string, options map[string]string) int {
	if len(args) < 1 {
		fmt.Fprintf(os.Stderr, "ERROR: Not enough arguments provided, use --help\n")
		return -1
	}

	for _, input := range args {
		if err := analyzeFile(input); err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: Unable to analyze '%s': %s\n", input, err)
			return -1
		}
	}

	return 0
}

// analyzeFile runs the tokenizer and parser over a single '.jack' file and writes the
// resulting parse tree to a sibling file with the same name, '.xml' extension.
func analyzeFile(input string) error {
	source, err := os.ReadFile(input)
	if err != nil {
		return fmt.Errorf("unable to open input file: %w", err)
	}

	outputPath := strings.TrimSuffix(input, ".jack") + ".xml"
	output, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("unable to open output file: %w", err)
	}
	defer output.Close()

	// Instantiate a tokenizer over the raw source and a parser wrapping it.
	tokenizer := jack.NewTokenizer(source)
	parser := jack.NewParser(tokenizer)

	// Parses the token stream and extracts a flattened parse tree from it.
	lines, err := parser.Parse()
	if err != nil {
		return fmt.Errorf("unable to complete 'parsing' pass: %w", err)
	}

	for _, line := range lines {
		output.Write([]byte(line + "\n"))
	}

	return nil
}

func main() { os.Exit(JackAnalyzer.Run(os.Args, os.Stdout)) }
