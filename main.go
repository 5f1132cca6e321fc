package main

import "github.com/theirongolddev/finpilot/cmd"

func main() {
	cmd.Execute()
}
