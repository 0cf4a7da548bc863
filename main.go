package main

import "github.com/JulianFerry/easymake/cmd"

func main() {
	cmd.Execute()
}
