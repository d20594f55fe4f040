package main

import "github.com/europython/programapi/internal/cli"

func main() {
	cli.Execute()
}
