package main

import "github.com/diogo/promptin/internal/commands"

func main() {
	commands.Execute()
}
