package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"dtolsp/internal/diag"
	"dtolsp/internal/diagfmt"
	"dtolsp/internal/lexer"
	"dtolsp/internal/source"
)

var tokenizeCmd = &cobra.Command{
	Use:   "tokenize [flags] file.dto",
	Short: "Tokenize a DTO file",
	Long:  `Tokenize breaks a DTO file down into its tokens and their leading trivia`,
	Args:  cobra.ExactArgs(1),
	RunE:  runTokenize,
}

func init() {
	tokenizeCmd.Flags().String("format", "pretty", "output format (pretty|json)")
}

func runTokenize(cmd *cobra.Command, args []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}

	fset := source.NewFileSet()
	id, err := fset.Load(args[0])
	if err != nil {
		return fmt.Errorf("tokenization failed: %w", err)
	}
	bag := diag.NewBag(max(maxDiagnostics(cmd), 1))
	tokens := lexer.Tokenize(fset.Get(id), lexer.Options{Reporter: diag.BagReporter{Bag: bag}})

	if bag.Len() > 0 {
		diagfmt.Pretty(os.Stderr, bag, fset, diagfmt.PrettyOpts{
			Color:   useColor(cmd, os.Stderr),
			Context: 2,
		})
	}

	switch format {
	case "pretty":
		return diagfmt.FormatTokensPretty(os.Stdout, tokens, fset)
	case "json":
		return diagfmt.FormatTokensJSON(os.Stdout, tokens)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}
