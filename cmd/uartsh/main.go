package main

import (
	"github.com/robotalks/uartcon/pkg/cli/sh"
	"github.com/robotalks/uartcon/pkg/env"
)

//go-build: CGO_ENABLED=0

func init() {
	env.SetupFlags()
}

func main() {
	sh.Main()
}
