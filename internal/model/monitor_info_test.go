package model

import "testing"

func TestHostKey(t *testing.T) {
	tests := []struct {
		name string
		info MonitorInfo
		want string
	}{
		{"hostname and ip", MonitorInfo{HostInfo: &HostInfo{Hostname: "web-1", IPAddress: "10.0.0.4"}}, "web-1_10.0.0.4"},
		{"hostname only", MonitorInfo{HostInfo: &HostInfo{Hostname: "web-1"}}, "web-1"},
		{"ip only", MonitorInfo{HostInfo: &HostInfo{IPAddress: "10.0.0.4"}}, "10.0.0.4"},
		{"legacy name fallback", MonitorInfo{Name: "legacy", HostInfo: &HostInfo{}}, "legacy"},
		{"no host info", MonitorInfo{Name: "legacy"}, "legacy"},
		{"nothing", MonitorInfo{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.info.HostKey(); got != tt.want {
				t.Errorf("HostKey() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMaxDiskUtil(t *testing.T) {
	info := MonitorInfo{DiskInfo: []DiskInfo{
		{Name: "sda", UtilPercent: 12},
		{Name: "sdb", UtilPercent: 78},
		{Name: "sdc", UtilPercent: 3},
	}}
	if got := info.MaxDiskUtil(); got != 78 {
		t.Errorf("MaxDiskUtil() = %v, want 78", got)
	}
	if got := (&MonitorInfo{}).MaxDiskUtil(); got != 0 {
		t.Errorf("MaxDiskUtil() with no disks = %v, want 0", got)
	}
}

func TestCPUCores(t *testing.T) {
	tests := []struct {
		name  string
		stats int
		want  int
	}{
		{"no stats", 0, 1},
		{"aggregate only", 1, 1},
		{"four cores", 5, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := MonitorInfo{CPUStat: make([]CPUStat, tt.stats)}
			if got := info.CPUCores(); got != tt.want {
				t.Errorf("CPUCores() with %d entries = %d, want %d", tt.stats, got, tt.want)
			}
		})
	}
}
