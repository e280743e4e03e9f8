package main

import "github.com/nfrund/streamhub/cmd/streamhub/cmd"

func main() {
	cmd.Execute()
}
