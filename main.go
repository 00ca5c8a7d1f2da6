package main

import "github.com/vigneshmj1997/CodingAgent/cmd"

func main() {
	cmd.Execute()
}
