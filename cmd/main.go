package main

import "github.com/Leganyst/room-scheduler/internal/cli"

func main() {
	cli.Execute()
}
