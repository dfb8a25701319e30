package main

import "github.com/ZanzyTHEbar/dialin/internal/cli"

func main() {
	cli.Execute()
}
