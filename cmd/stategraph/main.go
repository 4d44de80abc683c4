// Command stategraph runs the stategraph workflows from the terminal and
// serves the HITL product review API.
package main

func main() {
	Execute()
}
