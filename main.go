package main

import "github.com/felipe-tactile/token-watcher/cmd"

func main() {
	cmd.Execute()
}
