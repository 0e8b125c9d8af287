package main

import "github.com/fscifa/totepipe/cmd"

func main() {
	cmd.Execute()
}
