package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var typeFile string

var typeCommand = &cobra.Command{
	Use:   "type",
	Short: "typecheck a spec file and print the typed program as JSON",
	Long:  ``,
	RunE: func(*cobra.Command, []string) error {
		setupLogging()
		act, err := frontend(typeFile)
		if err != nil {
			return err
		}
		out, err := json.MarshalIndent(act, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}

func init() {
	typeCommand.Flags().StringVar(&typeFile, "file", "", "spec file")
	typeCommand.Flags().BoolVar(&debugFlag, "debug", false, "enable debug logging")
}
