// Package systeminfo snapshots the host a run executed on.
package systeminfo

import (
	"fmt"
	"runtime"

	"docprobe/logger"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
)

type SystemInfo struct {
	Hostname        string `json:"hostname,omitempty"`
	OS              string `json:"os"`
	Platform        string `json:"platform,omitempty"`
	PlatformVersion string `json:"platform_version,omitempty"`
	KernelVersion   string `json:"kernel_version,omitempty"`
	Arch            string `json:"arch"`
	GoVersion       string `json:"go_version"`
	LogicalCPUs     int    `json:"logical_cpus"`
	PhysicalCPUs    int    `json:"physical_cpus,omitempty"`
	TotalMemory     uint64 `json:"total_memory_bytes,omitempty"`
	AvailableMemory uint64 `json:"available_memory_bytes,omitempty"`
}

// GetSystemInfo gathers what it can. Individual probes that fail are logged
// and left empty.
func GetSystemInfo() (*SystemInfo, error) {
	sysInfo := &SystemInfo{
		OS:          runtime.GOOS,
		Arch:        runtime.GOARCH,
		GoVersion:   runtime.Version(),
		LogicalCPUs: runtime.NumCPU(),
	}

	if err := gatherHost(sysInfo); err != nil {
		logger.Warnf("Failed to gather host details: %v", err)
	}
	if err := gatherCPU(sysInfo); err != nil {
		logger.Warnf("Failed to gather CPU counts: %v", err)
	}
	if err := gatherMemory(sysInfo); err != nil {
		logger.Warnf("Failed to gather memory figures: %v", err)
	}
	return sysInfo, nil
}

func gatherHost(sysInfo *SystemInfo) error {
	info, err := host.Info()
	if err != nil {
		return fmt.Errorf("failed to read host info: %w", err)
	}
	sysInfo.Hostname = info.Hostname
	sysInfo.Platform = info.Platform
	sysInfo.PlatformVersion = info.PlatformVersion
	sysInfo.KernelVersion = info.KernelVersion
	if info.OS != "" {
		sysInfo.OS = info.OS
	}
	return nil
}

func gatherCPU(sysInfo *SystemInfo) error {
	logical, err := cpu.Counts(true)
	if err != nil {
		return fmt.Errorf("failed to count logical CPUs: %w", err)
	}
	if logical > 0 {
		sysInfo.LogicalCPUs = logical
	}
	physical, err := cpu.Counts(false)
	if err != nil {
		return fmt.Errorf("failed to count physical CPUs: %w", err)
	}
	sysInfo.PhysicalCPUs = physical
	return nil
}

func gatherMemory(sysInfo *SystemInfo) error {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return fmt.Errorf("failed to read memory: %w", err)
	}
	sysInfo.TotalMemory = vm.Total
	sysInfo.AvailableMemory = vm.Available
	return nil
}
