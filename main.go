// Command kolscout is the creator scouting service and CLI.
package main

import (
	"github.com/JakeFAU/kolscout/cmd"
)

func main() {
	cmd.Execute()
}
