package main

import (
	"os"

	"taskwatch/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
