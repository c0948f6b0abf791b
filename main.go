package main

import "github.com/twiced-technology-gmbh/equilibrium/cmd"

func main() {
	cmd.Execute()
}
