package main

import (
	"fmt"
	"os"

	"act/internal/ast"
	"act/internal/parser"
	"act/internal/typecheck"
	"act/internal/types"

	log "github.com/sirupsen/logrus"
)

var debugFlag bool

func setupLogging() {
	if debugFlag {
		log.SetLevel(log.DebugLevel)
	}
}

func readSource(file string) (string, error) {
	if file == "" {
		return "", fmt.Errorf("no spec file given, use --file")
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// frontend runs lex, parse and typecheck on one file. User diagnostics
// are printed and reported through the error return; internal errors
// abort directly with a distinct exit code.
func frontend(file string) (*types.Act, error) {
	src, err := readSource(file)
	if err != nil {
		return nil, err
	}
	parsed, err := parseSource(src)
	if err != nil {
		return nil, err
	}
	act, userErrs, internalErr := typecheck.Program(parsed)
	if internalErr != nil {
		fmt.Fprintln(os.Stderr, internalErr)
		os.Exit(2)
	}
	if !userErrs.Empty() {
		for _, e := range userErrs.Errors() {
			fmt.Fprintln(os.Stderr, e)
		}
		return nil, fmt.Errorf("%d errors", len(userErrs.Errors()))
	}
	return act, nil
}

func parseSource(src string) (*ast.File, error) {
	return parser.Parse(src)
}
