package main

import "github.com/scalaris-team/scalaris-go/cmd"

func main() {
	cmd.Execute()
}
