package main

import "github.com/fasinfasi/Face-Lock-System/cmd"

func main() {
	cmd.Execute()
}
