package main

import "github.com/mrdg/bleeper/cmd"

func main() {
	cmd.Execute()
}
