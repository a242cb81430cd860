// Command virtmem runs a workload on a demand-paged virtual memory simulator
// and reports page faults and disk traffic.
//
//	virtmem <npages> <nframes> <rand|fifo|custom> <sort|scan|focus>
//
// Backing store, compression, seed and logging are configured through
// VIRTMEM_* environment variables or a JSON file named by VIRTMEM_CONFIG.
package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/sibexico/VirtMem/program"
	"github.com/sibexico/VirtMem/vm"
)

const usage = "Usage: virtmem <npages> <nframes> <rand|fifo|custom> <sort|scan|focus>"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) != 4 {
		fmt.Fprintln(stderr, usage)
		return 1
	}

	config, err := buildConfig(args)
	if err != nil {
		fmt.Fprintf(stderr, "ERROR: %v\n", err)
		if vm.IsErrorCode(err, vm.ErrCodeUnknownPolicy) || vm.IsErrorCode(err, vm.ErrCodeUnknownProgram) {
			fmt.Fprintln(stderr, usage)
		}
		return 1
	}

	workload, err := program.Lookup(config.Program)
	if err != nil {
		fmt.Fprintf(stderr, "ERROR: %v\n", err)
		return 1
	}

	logger := vm.NewLogger(stderr, config.LogLevel)

	sim, err := vm.NewSimulator(config, logger)
	if err != nil {
		fmt.Fprintf(stderr, "ERROR: %v\n", err)
		return 1
	}
	defer func() {
		if err := sim.Close(); err != nil {
			logger.Error("failed to clean up simulator", "error", err)
		}
	}()

	var result int
	err = sim.Run(func(mem vm.Memory) {
		result = workload(mem)
	})
	if err != nil {
		fmt.Fprintf(stderr, "ERROR: %v\n", err)
		return 1
	}

	fmt.Fprintf(stdout, "%s result is %d\n", config.Program, result)
	if err := sim.Report(stdout); err != nil {
		logger.Error("failed to write report", "error", err)
		return 1
	}

	if config.DumpPageTable {
		if err := sim.PageTable().Print(stderr); err != nil {
			logger.Warn("failed to print page table", "error", err)
		}
	}

	return 0
}

// buildConfig layers defaults, the optional config file, the environment and
// finally the positional arguments
func buildConfig(args []string) (*vm.Config, error) {
	config := vm.DefaultConfig()
	if path := os.Getenv("VIRTMEM_CONFIG"); path != "" {
		loaded, err := vm.LoadConfigFromFile(path)
		if err != nil {
			return nil, err
		}
		config = loaded
	}
	config.ApplyEnv()

	npages, err := strconv.Atoi(args[0])
	if err != nil {
		return nil, vm.ErrInvalidConfig("buildConfig", fmt.Sprintf("invalid number of pages: %s", args[0]))
	}
	nframes, err := strconv.Atoi(args[1])
	if err != nil {
		return nil, vm.ErrInvalidConfig("buildConfig", fmt.Sprintf("invalid number of frames: %s", args[1]))
	}

	config.Pages = npages
	config.Frames = nframes
	config.Policy = args[2]
	config.Program = args[3]

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}
