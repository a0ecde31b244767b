// Command grain classifies the geometry in a scene file.
//
//	grain scan examples/bracket.yaml
//	grain scan --meshes --workers 4 examples/bracket.lisp
//	grain eval examples/bracket.lisp
//	grain config --config thresholds.yaml
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "grain:", err)
		os.Exit(1)
	}
}
