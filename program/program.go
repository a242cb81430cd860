// Package program holds the workloads that drive the simulator. Each one
// touches virtual memory only through vm.Memory and returns a checksum so a
// run's result can be compared across policies.
package program

import (
	"math/rand"
	"sort"

	"github.com/sibexico/VirtMem/vm"
)

// Program is a workload over virtual memory
type Program func(mem vm.Memory) int

// Lookup returns the workload with the given name
func Lookup(name string) (Program, error) {
	switch name {
	case "sort":
		return Sort, nil
	case "scan":
		return Scan, nil
	case "focus":
		return Focus, nil
	default:
		return nil, vm.ErrUnknownProgram("program.Lookup", name)
	}
}

// Names lists the available workloads
func Names() []string {
	return []string{"sort", "scan", "focus"}
}

// Sort fills memory with random bytes, sorts them in place and sums them
func Sort(mem vm.Memory) int {
	rng := rand.New(rand.NewSource(4856))
	length := mem.Len()

	for i := 0; i < length; i++ {
		mem.Store(i, byte(rng.Int63()))
	}

	sort.Sort(byteSorter{mem})

	return sum(mem)
}

// Scan writes a repeating 0..255 pattern, then reads all of memory ten times
func Scan(mem vm.Memory) int {
	length := mem.Len()

	for i := 0; i < length; i++ {
		mem.Store(i, byte(i%256))
	}

	total := 0
	for j := 0; j < 10; j++ {
		total += sum(mem)
	}
	return total
}

// Focus zeroes memory, then scribbles on 100 random 25-byte hot regions
func Focus(mem vm.Memory) int {
	const (
		regions    = 100
		regionSize = 25
		writes     = 100
	)

	rng := rand.New(rand.NewSource(38290))
	length := mem.Len()

	for i := 0; i < length; i++ {
		mem.Store(i, 0)
	}

	for j := 0; j < regions; j++ {
		start := rng.Intn(length)
		for i := 0; i < writes; i++ {
			mem.Store((start+rng.Intn(regionSize))%length, byte(rng.Int63()))
		}
	}

	return sum(mem)
}

func sum(mem vm.Memory) int {
	total := 0
	for i, n := 0, mem.Len(); i < n; i++ {
		total += int(mem.Load(i))
	}
	return total
}

// byteSorter sorts virtual memory byte by byte
type byteSorter struct {
	mem vm.Memory
}

func (s byteSorter) Len() int           { return s.mem.Len() }
func (s byteSorter) Less(i, j int) bool { return s.mem.Load(i) < s.mem.Load(j) }
func (s byteSorter) Swap(i, j int) {
	a, b := s.mem.Load(i), s.mem.Load(j)
	s.mem.Store(i, b)
	s.mem.Store(j, a)
}
