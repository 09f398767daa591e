package main

import "bindkit/internal/cli"

func main() {
	cli.Execute()
}
