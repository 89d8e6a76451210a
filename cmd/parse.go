package main

import (
	"fmt"

	"act/internal/ast"

	"github.com/spf13/cobra"
)

var parseFile string

var parseCommand = &cobra.Command{
	Use:   "parse",
	Short: "parse a spec file and print the canonical form",
	Long:  ``,
	RunE: func(*cobra.Command, []string) error {
		src, err := readSource(parseFile)
		if err != nil {
			return err
		}
		parsed, err := parseSource(src)
		if err != nil {
			return err
		}
		fmt.Print(ast.Print(parsed))
		return nil
	},
}

func init() {
	parseCommand.Flags().StringVar(&parseFile, "file", "", "spec file")
}
