package main

import "github.com/clipforge/clipd/internal/cli"

func main() {
	cli.Main()
}
