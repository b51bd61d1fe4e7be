// Command evset builds minimal eviction sets.
package main

import (
	"github.com/sarchlab/evset/evset/cmd"
)

func main() {
	cmd.Execute()
}
