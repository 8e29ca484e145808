// Package hostprobe reads machine signals through gopsutil.
//
// Only fields that stay put for the life of a boot are reported. Uptime,
// usage figures and clock speeds would fail the consistency check.
package hostprobe

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/net"

	"github.com/stupside/fpid/internal/app"
	"github.com/stupside/fpid/internal/probe"
)

// Source is where the probes read from. Tests substitute it.
type Source struct {
	Host       func(ctx context.Context) (*host.InfoStat, error)
	CPU        func(ctx context.Context) ([]cpu.InfoStat, error)
	CPUCount   func(ctx context.Context, logical bool) (int, error)
	Memory     func(ctx context.Context) (*mem.VirtualMemoryStat, error)
	Interfaces func(ctx context.Context) (net.InterfaceStatList, error)
	Now        func() time.Time
}

// System reads the running machine.
func System() Source {
	return Source{
		Host:       host.InfoWithContext,
		CPU:        cpu.InfoWithContext,
		CPUCount:   cpu.CountsWithContext,
		Memory:     mem.VirtualMemoryWithContext,
		Interfaces: net.InterfacesWithContext,
		Now:        time.Now,
	}
}

// Probes returns the host probe set.
func Probes(cfg app.HostConfig, src Source) []probe.Definition {
	return []probe.Definition{
		{Name: "os", Func: osProbe(src)},
		{Name: "cpu", Func: cpuProbe(src)},
		{Name: "memory", Func: memoryProbe(src)},
		{Name: "network", Func: networkProbe(src, cfg.IncludeLoopback)},
		{Name: "timezone", Func: timezoneProbe(src)},
	}
}

type osInfo struct {
	OS              string `json:"os"`
	Platform        string `json:"platform"`
	PlatformFamily  string `json:"platformFamily"`
	PlatformVersion string `json:"platformVersion"`
	KernelVersion   string `json:"kernelVersion"`
	KernelArch      string `json:"kernelArch"`
	Virtualization  string `json:"virtualization"`
	HostID          string `json:"hostId"`
}

func osProbe(src Source) probe.Func {
	return func(ctx context.Context) probe.Outcome {
		info, err := src.Host(ctx)
		if err != nil {
			return outcomeOf(err)
		}
		return probe.Value(osInfo{
			OS:              info.OS,
			Platform:        info.Platform,
			PlatformFamily:  info.PlatformFamily,
			PlatformVersion: info.PlatformVersion,
			KernelVersion:   info.KernelVersion,
			KernelArch:      info.KernelArch,
			Virtualization:  strings.Trim(info.VirtualizationSystem+"/"+info.VirtualizationRole, "/"),
			HostID:          info.HostID,
		})
	}
}

type cpuInfo struct {
	Models   []string `json:"models"`
	Vendor   string   `json:"vendor"`
	Physical int      `json:"physical"`
	Logical  int      `json:"logical"`
	Flags    string   `json:"flags"`
}

func cpuProbe(src Source) probe.Func {
	return func(ctx context.Context) probe.Outcome {
		infos, err := src.CPU(ctx)
		if err != nil {
			return outcomeOf(err)
		}
		if len(infos) == 0 {
			return probe.Unsupported()
		}
		physical, err := src.CPUCount(ctx, false)
		if err != nil {
			return outcomeOf(err)
		}
		logical, err := src.CPUCount(ctx, true)
		if err != nil {
			return outcomeOf(err)
		}

		var models []string
		for _, info := range infos {
			if !slices.Contains(models, info.ModelName) {
				models = append(models, info.ModelName)
			}
		}
		slices.Sort(models)

		flags := slices.Clone(infos[0].Flags)
		slices.Sort(flags)

		return probe.Value(cpuInfo{
			Models:   models,
			Vendor:   infos[0].VendorID,
			Physical: physical,
			Logical:  logical,
			Flags:    strings.Join(flags, " "),
		})
	}
}

func memoryProbe(src Source) probe.Func {
	return func(ctx context.Context) probe.Outcome {
		vm, err := src.Memory(ctx)
		if err != nil {
			return outcomeOf(err)
		}
		return probe.Value(map[string]uint64{"total": vm.Total})
	}
}

type iface struct {
	Name string `json:"name"`
	MAC  string `json:"mac"`
	MTU  int    `json:"mtu"`
}

func networkProbe(src Source, includeLoopback bool) probe.Func {
	return func(ctx context.Context) probe.Outcome {
		list, err := src.Interfaces(ctx)
		if err != nil {
			return outcomeOf(err)
		}

		var out []iface
		for _, stat := range list {
			if stat.HardwareAddr == "" {
				continue
			}
			if !includeLoopback && slices.Contains(stat.Flags, "loopback") {
				continue
			}
			out = append(out, iface{Name: stat.Name, MAC: stat.HardwareAddr, MTU: stat.MTU})
		}
		if len(out) == 0 {
			return probe.Unsupported()
		}
		slices.SortFunc(out, func(a, b iface) int { return strings.Compare(a.Name, b.Name) })
		return probe.Value(out)
	}
}

type zoneOffset struct {
	Zone   string `json:"zone"`
	Offset int    `json:"offset"`
}

type zoneRules struct {
	Location string     `json:"location,omitempty"`
	January  zoneOffset `json:"january"`
	July     zoneOffset `json:"july"`
}

// zoneReferenceYear pins the instants the zone is sampled at, so the value
// does not follow daylight saving transitions.
const zoneReferenceYear = 2024

func timezoneProbe(src Source) probe.Func {
	return func(context.Context) probe.Outcome {
		loc := src.Now().Location()
		rules := zoneRules{
			January: offsetAt(loc, time.January),
			July:    offsetAt(loc, time.July),
		}
		if name := loc.String(); name != "Local" {
			rules.Location = name
		}
		return probe.Value(rules)
	}
}

func offsetAt(loc *time.Location, month time.Month) zoneOffset {
	name, offset := time.Date(zoneReferenceYear, month, 1, 12, 0, 0, 0, loc).Zone()
	return zoneOffset{Zone: name, Offset: offset}
}

// outcomeOf maps a gopsutil error to a probe outcome. gopsutil reports
// unsupported platforms with a "not implemented" error from an internal
// package, so it is recognized by its text.
func outcomeOf(err error) probe.Outcome {
	if strings.Contains(err.Error(), "not implemented") {
		return probe.Unsupported()
	}
	return probe.Fail(err)
}
