package main

import "github.com/hosamdev/wassist/cmd"

func main() {
	cmd.Execute()
}
