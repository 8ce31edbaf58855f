package main

import "github.com/jjenkins/billpulse/cmd"

func main() {
	cmd.Execute()
}
