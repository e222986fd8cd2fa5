package main

import (
	"os"

	"github.com/siddhi-labs/citypulse/internal/app"
)

func main() {
	os.Exit(app.Run(os.Args[1:]))
}
