package main

import "github.com/derickschaefer/bc19/cmd"

func main() {
	cmd.Execute()
}
