package main

import (
	"github.com/w3guard/solidity-sentinel/src/cmd"
)

func main() {
	if err := cmd.Run(); err != nil {
		cmd.PrintFatal(err)
	}
}
