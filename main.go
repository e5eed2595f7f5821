package main

import (
	"github.com/luma/rconctl/cmd"
)

func main() {
	cmd.Execute()
}
