package main

import "github.com/mcoot/combattracker/internal/cli"

func main() {
	cli.Execute()
}
