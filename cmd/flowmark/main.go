package main

import "github.com/mvp-joe/flowmark/internal/cli"

func main() {
	cli.Execute()
}
