package hostprobe

import (
	"context"
	"errors"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/net"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stupside/fpid/internal/app"
	"github.com/stupside/fpid/internal/engine"
	"github.com/stupside/fpid/internal/probe"
)

func fakeSource() Source {
	return Source{
		Host: func(context.Context) (*host.InfoStat, error) {
			return &host.InfoStat{
				OS: "linux", Platform: "debian", PlatformFamily: "debian", PlatformVersion: "12",
				KernelVersion: "6.1.0", KernelArch: "x86_64", VirtualizationSystem: "kvm",
				VirtualizationRole: "guest", HostID: "abc", Uptime: uint64(time.Now().UnixNano()),
			}, nil
		},
		CPU: func(context.Context) ([]cpu.InfoStat, error) {
			return []cpu.InfoStat{
				{ModelName: "Xeon", VendorID: "GenuineIntel", Flags: []string{"sse2", "avx"}, Mhz: float64(time.Now().UnixNano())},
				{ModelName: "Xeon", VendorID: "GenuineIntel", Flags: []string{"sse2", "avx"}},
			}, nil
		},
		CPUCount: func(_ context.Context, logical bool) (int, error) {
			if logical {
				return 4, nil
			}
			return 2, nil
		},
		Memory: func(context.Context) (*mem.VirtualMemoryStat, error) {
			return &mem.VirtualMemoryStat{Total: 8 << 30, Free: uint64(time.Now().UnixNano())}, nil
		},
		Interfaces: func(context.Context) (net.InterfaceStatList, error) {
			return net.InterfaceStatList{
				{Name: "lo", HardwareAddr: "00:00:00:00:00:01", Flags: []string{"up", "loopback"}},
				{Name: "eth1", HardwareAddr: "aa:bb:cc:dd:ee:02", MTU: 1500},
				{Name: "eth0", HardwareAddr: "aa:bb:cc:dd:ee:01", MTU: 1500},
				{Name: "tun0"},
			}, nil
		},
		Now: func() time.Time {
			return time.Date(2026, 1, 1, 0, 0, 0, 0, time.FixedZone("CET", 3600))
		},
	}
}

func generate(t *testing.T, cfg app.HostConfig, src Source) *engine.Report {
	t.Helper()
	reg, err := probe.NewRegistry(Probes(cfg, src)...)
	require.NoError(t, err)
	return engine.New(reg, engine.Config{Attempts: 3, ProbeTimeout: time.Second}).Generate(context.Background())
}

func TestHostProbesAreStable(t *testing.T) {
	report := generate(t, app.HostConfig{}, fakeSource())

	for _, e := range report.Entries() {
		assert.Equal(t, probe.Success, e.Status, e.Name)
	}
	assert.Equal(t, []string{"os", "cpu", "memory", "network", "timezone"}, names(report))
}

func TestHostProbeValues(t *testing.T) {
	report := generate(t, app.HostConfig{}, fakeSource())

	virt, err := report.Lookup("os.raw.virtualization")
	require.NoError(t, err)
	assert.Equal(t, "kvm/guest", virt.String())

	flags, err := report.Lookup("cpu.raw.flags")
	require.NoError(t, err)
	assert.Equal(t, "avx sse2", flags.String())

	models, err := report.Lookup("cpu.raw.models.#")
	require.NoError(t, err)
	assert.EqualValues(t, 1, models.Int())

	first, err := report.Lookup("network.raw.0.name")
	require.NoError(t, err)
	assert.Equal(t, "eth0", first.String())

	count, err := report.Lookup("network.raw.#")
	require.NoError(t, err)
	assert.EqualValues(t, 2, count.Int())

	offset, err := report.Lookup("timezone.raw.january.offset")
	require.NoError(t, err)
	assert.EqualValues(t, 3600, offset.Int())
}

func TestNetworkIncludesLoopbackWhenAsked(t *testing.T) {
	report := generate(t, app.HostConfig{IncludeLoopback: true}, fakeSource())

	count, err := report.Lookup("network.raw.#")
	require.NoError(t, err)
	assert.EqualValues(t, 3, count.Int())
}

func TestHostProbeErrors(t *testing.T) {
	src := fakeSource()
	src.Host = func(context.Context) (*host.InfoStat, error) { return nil, errors.New("not implemented yet") }
	src.Memory = func(context.Context) (*mem.VirtualMemoryStat, error) { return nil, errors.New("permission denied") }
	src.Interfaces = func(context.Context) (net.InterfaceStatList, error) { return nil, nil }
	src.CPU = func(context.Context) ([]cpu.InfoStat, error) { return nil, nil }

	report := generate(t, app.HostConfig{}, src)

	osRes, _ := report.Result("os")
	assert.Equal(t, probe.NotSupported, osRes.Status)
	memRes, _ := report.Result("memory")
	assert.Equal(t, probe.Error, memRes.Status)
	netRes, _ := report.Result("network")
	assert.Equal(t, probe.NotSupported, netRes.Status)
	cpuRes, _ := report.Result("cpu")
	assert.Equal(t, probe.NotSupported, cpuRes.Status)
}

func names(r *engine.Report) []string {
	var out []string
	for _, e := range r.Entries() {
		out = append(out, e.Name)
	}
	return out
}

func TestTimezoneIgnoresDaylightSaving(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	at := func(month time.Month) probe.Outcome {
		src := fakeSource()
		src.Now = func() time.Time { return time.Date(2026, month, 15, 9, 0, 0, 0, berlin) }
		return timezoneProbe(src)(context.Background())
	}

	winter, summer := at(time.January), at(time.July)
	require.Equal(t, probe.Success, winter.Status)
	assert.Equal(t, winter, summer)

	rules := winter.Value.(zoneRules)
	assert.Equal(t, "Europe/Berlin", rules.Location)
	assert.Equal(t, zoneOffset{Zone: "CET", Offset: 3600}, rules.January)
	assert.Equal(t, zoneOffset{Zone: "CEST", Offset: 7200}, rules.July)
}
