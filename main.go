package main

import "github.com/fachebot/docscribe/cmd"

func main() {
	cmd.Execute()
}
