//go:build linux

// Command etlisten accepts TCP connections on one port and logs every chunk
// of bytes it receives until each peer disconnects.
package main

import (
	"context"

	"github.com/scott-cotton/cli"
)

func main() {
	cli.MainContext(context.Background(), MainCommand())
}
