package main

import (
	"os"

	"github.com/joseph-ayodele/drive-renamer/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
