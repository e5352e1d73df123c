package main

import (
	"fmt"
	"os"

	"github.com/me/wdl2vidarr/internal/cli"
)

func main() {
	if err := cli.NewConvertCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
