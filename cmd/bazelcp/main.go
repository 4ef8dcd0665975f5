package main

import "os"

func main() {
	if err := newRootCommand(nil).Execute(); err != nil {
		os.Exit(1)
	}
}
