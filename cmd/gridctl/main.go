package main

import (
	"github.com/turtacn/astragrid/cmd/cli"
)

// main is the entry point for the gridctl command-line tool.
// It delegates all execution to the Execute function provided by the cli package.
// main 是 gridctl 命令行工具的入口点。
func main() {
	cli.Execute()
}
