package main

import "github.com/naka-gawa/coverage-stats/cmd"

func main() {
	cmd.Execute()
}
