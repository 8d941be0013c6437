//go:build !windows

package main

import (
	"os"
	"syscall"
)

// terminationSignals stop the server gracefully.
var terminationSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}
