package main

import "github.com/cmlre/marine-platform/cmd"

func main() {
	cmd.Execute()
}
