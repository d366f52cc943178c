// Command perftest runs the load and sample microbenchmarks on one GPU adapter and prints the time
// of every case compared to a reference case.
//
// Usage:
//
//	perftest [ADAPTER_INDEX] [flags]
//
// Examples:
//
//	perftest                          # List adapters
//	perftest 0                        # Benchmark adapter 0
//	perftest 1 --filter Texture2D     # Benchmark the texture cases on adapter 1
//	perftest 0 --backend software     # Run the cases on the simulated timeline
package main

import (
	"log"
	"runtime"
)

func init() {
	// GLFW and the WGPU surface must stay on the main thread.
	runtime.LockOSThread()
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		log.Fatalf("[perftest] %v", err)
	}
}
