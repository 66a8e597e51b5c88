// Package hostinfo gathers the host facts and library checks behind
// `ncclspy check`.
package hostinfo

import (
	"path/filepath"
	"runtime"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/ncclspy/ncclspy/internal/resolver"
)

// Facts describes the host a workload would run on.
type Facts struct {
	Hostname      string   `json:"hostname"`
	OS            string   `json:"os"`
	Arch          string   `json:"arch"`
	KernelVersion string   `json:"kernel_version"`
	CPUModel      string   `json:"cpu_model"`
	CPUThreads    int      `json:"cpu_threads"`
	MemoryBytes   uint64   `json:"memory_bytes"`
	GPUDevices    []string `json:"gpu_devices"`
}

// Collect gathers host facts. Individual probes are best effort; a field
// that cannot be read stays at its zero value.
func Collect() *Facts {
	facts := &Facts{
		OS:         runtime.GOOS,
		Arch:       runtime.GOARCH,
		CPUThreads: runtime.NumCPU(),
	}

	if info, err := host.Info(); err == nil {
		facts.Hostname = info.Hostname
		facts.KernelVersion = info.KernelVersion
	}
	if infos, err := cpu.Info(); err == nil && len(infos) > 0 {
		facts.CPUModel = infos[0].ModelName
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		facts.MemoryBytes = vm.Total
	}
	facts.GPUDevices = gpuDevices()

	return facts
}

// gpuDevices lists NVIDIA device nodes. Absence is not an error: the
// check still reports whether the library resolves.
func gpuDevices() []string {
	devices, err := filepath.Glob("/dev/nvidia[0-9]*")
	if err != nil {
		return nil
	}
	return devices
}

// LibraryProbe is the outcome of resolving the target symbol.
type LibraryProbe struct {
	Library  string `json:"library"`
	Symbol   string `json:"symbol"`
	Resolved bool   `json:"resolved"`
	Error    string `json:"error,omitempty"`
}

// ProbeLibrary attempts the same resolution the shim would perform.
func ProbeLibrary(res resolver.Resolver, library, symbol string) LibraryProbe {
	probe := LibraryProbe{Library: library, Symbol: symbol}
	if _, err := res.Resolve(library, symbol); err != nil {
		probe.Error = err.Error()
		return probe
	}
	probe.Resolved = true
	return probe
}
