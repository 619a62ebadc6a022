package main

import "github.com/codewright/codewright/cmd"

func main() {
	cmd.Execute()
}
