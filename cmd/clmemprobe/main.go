// Command clmemprobe maps, writes and reads memory objects on configurable
// devices and reports how each mapping was served.
package main

import (
	"os"

	"github.com/gogpu/clmem/cmd/clmemprobe/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
