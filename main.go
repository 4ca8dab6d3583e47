package main

import "github.com/jeff-mclean/mpris-scrobbler/cmd"

func main() {
	cmd.Execute()
}
