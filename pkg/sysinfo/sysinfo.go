// Package sysinfo probes host capabilities: CPU, memory and NVIDIA GPUs.
// The generate command logs the probe result and batch mode uses the logical
// CPU count to size its default worker pool.
package sysinfo

import (
	"os/exec"
	"strings"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// Info describes the host the generator runs on
type Info struct {
	CPUModel      string
	CPUThreads    int
	RAMTotalBytes uint64
	HasGPU        bool
	GPUName       string
}

// Probe collects host capabilities. Probe failures degrade to zero values
// rather than erroring; generation does not depend on any of this.
func Probe() Info {
	info := Info{}

	if counts, err := cpu.Counts(true); err == nil {
		info.CPUThreads = counts
	}
	if cpus, err := cpu.Info(); err == nil && len(cpus) > 0 {
		info.CPUModel = cpus[0].ModelName
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		info.RAMTotalBytes = vm.Total
	}

	info.HasGPU, info.GPUName = detectNvidiaGPU()
	return info
}

// detectNvidiaGPU shells out to nvidia-smi, the same probe the render
// engines themselves rely on
func detectNvidiaGPU() (bool, string) {
	out, err := exec.Command("nvidia-smi", "--query-gpu=name", "--format=csv,noheader").Output()
	if err != nil {
		return false, ""
	}
	name := strings.TrimSpace(strings.SplitN(string(out), "\n", 2)[0])
	if name == "" {
		return false, ""
	}
	return true, name
}

// DefaultWorkers returns the default batch worker pool width: the logical
// CPU count capped at 4, since each worker is a full generation process.
func DefaultWorkers() int {
	counts, err := cpu.Counts(true)
	if err != nil || counts < 1 {
		return 4
	}
	if counts > 4 {
		return 4
	}
	return counts
}
