package main

import "github.com/build-flow-labs/spdxview/internal/cli"

func main() {
	cli.Execute()
}
