// Package command defines the qrtoken-cli commands on urfave/cli/v2.
//
// Every command talks to a qrtoken-server over HTTP and prints its
// result with the --output formatter.
package command
