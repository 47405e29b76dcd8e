package main

import "oraclewatcher/internal/cli"

func main() {
	cli.Execute()
}
