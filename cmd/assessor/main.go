package main

import "github.com/berth-dev/assessor/internal/cli"

func main() {
	cli.Execute()
}
