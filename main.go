package main

import "ServingDashboard/pkg/commands"

func main() {
	commands.Execute()
}
