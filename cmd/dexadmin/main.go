package main

import "github.com/mcoot/globaldex/internal/cli"

func main() {
	cli.Execute()
}
