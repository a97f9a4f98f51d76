package main

import (
	"os"

	"github.com/AnyUserName/saveimg/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
