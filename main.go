// The main package for the hibid-crawler executable.
package main

import (
	"os"

	"github.com/auctionops/hibid-crawler/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
