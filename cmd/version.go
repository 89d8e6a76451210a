package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// overridden via -ldflags at release time
var (
	version = "dev"
	commit  string
	date    string
)

var versionCommand = &cobra.Command{
	Use:   "version",
	Short: "show version",
	Long:  ``,
	Run: func(*cobra.Command, []string) {
		out := "act " + version
		if commit != "" {
			out += " (" + commit + ")"
		}
		if date != "" {
			out += " built " + date
		}
		fmt.Printf("%s %s/%s\n", out, runtime.GOOS, runtime.GOARCH)
	},
}
