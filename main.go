// The main package for the olx-rent-crawler executable.
package main

import (
	"olx-rent-crawler/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
