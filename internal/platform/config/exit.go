package config

import (
	"fmt"
	"io"
	"os"
)

// Swapped in tests.
var (
	exitWriter io.Writer = os.Stderr
	exitFunc             = os.Exit
)

// ExitCodeConfig is the process status for unusable configuration.
const ExitCodeConfig = 2

// Exitf reports a configuration problem on stderr and exits with
// ExitCodeConfig. Use it before logging is set up, where log.Fatal would
// add a misleading prefix.
func Exitf(format string, args ...any) {
	fmt.Fprintf(exitWriter, format+"\n", args...)
	exitFunc(ExitCodeConfig)
}
