package main

import (
	"fmt"

	"act/internal/lexer"

	"github.com/spf13/cobra"
)

var lexFile string

var lexCommand = &cobra.Command{
	Use:   "lex",
	Short: "tokenize a spec file",
	Long:  ``,
	RunE: func(*cobra.Command, []string) error {
		src, err := readSource(lexFile)
		if err != nil {
			return err
		}
		toks, err := lexer.Lex(src)
		if err != nil {
			return err
		}
		for _, tok := range toks {
			if tok.Lit != "" {
				fmt.Printf("%s\t%s %q\n", tok.Pos, tok.Kind, tok.Lit)
			} else {
				fmt.Printf("%s\t%s\n", tok.Pos, tok.Kind)
			}
		}
		return nil
	},
}

func init() {
	lexCommand.Flags().StringVar(&lexFile, "file", "", "spec file")
}
