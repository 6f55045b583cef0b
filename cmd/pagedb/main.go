package main

import (
	"fmt"
	"os"

	"github.com/Blackdeer1524/PageDB/cmd/pagedb/app"
)

func main() {
	if err := app.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
