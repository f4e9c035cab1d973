package main

import cmd "github.com/rohmanhakim/docs-link-crawler/internal/cli"

func main() {
	cmd.Execute()
}
