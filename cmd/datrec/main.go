package main

import (
	"fmt"
	"os"

	"github.com/koustreak/datrec/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "datrec:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
