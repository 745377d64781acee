package main

import (
	"DriveFM/cmd"
)

func main() {
	cmd.Execute()
}
