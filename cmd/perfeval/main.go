// Command perfeval is the terminal front end. It opens the same data files
// as the web API and drives the same services.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd(defaultIO()).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
