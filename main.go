package main

import (
	cmd "github.com/getzep/cioexport/cmd/cioexport"
	"github.com/getzep/cioexport/internal"
)

var log = internal.GetLogger()

func main() {
	log.Info("Starting cioexport")
	cmd.Execute()
}
