// Command ainalyst researches a question with a language model and web
// search, writes a cited markdown report, and compiles it into slides.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
