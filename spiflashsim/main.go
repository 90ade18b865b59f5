// Command spiflashsim runs cycle-level simulations of the serial-flash read
// bridge.
package main

import "github.com/sarchlab/spiflash/spiflashsim/cmd"

func main() {
	cmd.Execute()
}
