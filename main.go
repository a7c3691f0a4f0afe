// Copyright (C) 2025 Felipe Figueiredo
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"fmt"
	"os"
	"runtime/pprof"

	"cpupowerctl/cmd"
)

func main() {
	// profile only if the environment variable is set
	if os.Getenv("CPUPOWERCTL_PROFILE") != "" {
		cpuFile, err := os.Create("cpu.prof")
		if err != nil {
			panic(err)
		}
		defer cpuFile.Close()

		if err := pprof.StartCPUProfile(cpuFile); err != nil {
			panic(err)
		}
		defer pprof.StopCPUProfile()
		defer fmt.Println("Profiling data written to cpu.prof")
	}
	cmd.Execute()
}
