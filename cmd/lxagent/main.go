package main

import (
	"lxagent/internal/cli"
)

func main() {
	cli.Execute()
}
