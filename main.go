// The main package for the crawlconsole executable.
package main

import "github.com/JakeFAU/crawl-console/cmd"

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
