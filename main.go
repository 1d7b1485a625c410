package main

import "github.com/iksnae/campusmind/cmd"

func main() {
	cmd.Execute()
}
