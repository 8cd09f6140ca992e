package main

import "github.com/vietdv277/cirrus/cmd"

func main() {
	cmd.Execute()
}
