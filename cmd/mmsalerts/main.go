package main

import (
	"mms-alerts/internal/cli"
)

func main() {
	cli.Execute()
}
