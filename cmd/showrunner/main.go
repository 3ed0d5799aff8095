// showrunner - streaming console for the writers-room agents
package main

import "github.com/halvik/showrunner/internal/cli"

func main() {
	cli.Execute()
}
