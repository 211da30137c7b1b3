// promptctl runs the prompt operations from the command line, without Telegram.
package main

import (
	"os"
)

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
