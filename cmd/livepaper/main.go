package main

import (
	"runtime"

	"github.com/matjam/livepaper/internal/cli"
)

func init() {
	// GLFW and the GL context must stay on the main thread.
	runtime.LockOSThread()
}

func main() {
	cli.Execute()
}
