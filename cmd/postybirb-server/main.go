package main

import (
	"os"

	"github.com/mycelian/postybirb/postybirbserver"
)

func main() {
	if err := postybirbserver.Run(); err != nil {
		os.Exit(1)
	}
}
