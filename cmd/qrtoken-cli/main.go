// Command qrtoken-cli manages QR calling tokens on a qrtoken-server.
//
//	qrtoken-cli --server localhost:5080 token issue --label "front door" alice
//	qrtoken-cli token validate "$QR_TEXT"
package main

import (
	"fmt"
	"os"

	"github.com/yndnr/qrtoken-go/internal/cli/command"
)

func main() {
	if err := command.App().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
