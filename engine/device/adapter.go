package device

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
)

// AdapterInfo describes a GPU adapter a backend can open.
type AdapterInfo struct {
	Index    int
	Name     string
	Vendor   string
	VendorID uint32
	DeviceID uint32
	Type     string
	Backend  string
	Driver   string
}

func (a AdapterInfo) String() string {
	return fmt.Sprintf("%d: %s (%s, vendor 0x%04X, device 0x%04X, %s)", a.Index, a.Name, a.Type, a.VendorID, a.DeviceID, a.Backend)
}

var hexID = regexp.MustCompile(`^(?i)0x[0-9a-f]+$`)

// softwareAdapter is the single adapter of the software backend.
var softwareAdapter = AdapterInfo{
	Name:    "Software Timeline",
	Vendor:  "oxy-perf",
	Type:    "CPU",
	Backend: BackendTypeSoftware.String(),
}

// Adapters enumerates the adapters a backend can open, in selection order.
//
// Parameters:
//   - backendType: the backend to enumerate
//
// Returns:
//   - []AdapterInfo: the adapters, indexed by AdapterInfo.Index
func Adapters(backendType BackendType) []AdapterInfo {
	if backendType == BackendTypeSoftware {
		return []AdapterInfo{softwareAdapter}
	}

	instance := wgpu.CreateInstance(nil)
	defer instance.Release()

	adapters := instance.EnumerateAdapters(nil)
	infos := make([]AdapterInfo, 0, len(adapters))
	for i, a := range adapters {
		infos = append(infos, wgpuAdapterInfo(i, a))
		a.Release()
	}
	return infos
}

func wgpuAdapterInfo(index int, a *wgpu.Adapter) AdapterInfo {
	info := a.GetInfo()
	return AdapterInfo{
		Index:    index,
		Name:     adapterName(info.Name, info.DriverDescription, info.VendorName),
		Vendor:   info.VendorName,
		VendorID: info.VendorId,
		DeviceID: info.DeviceId,
		Type:     fmt.Sprint(info.AdapterType),
		Backend:  fmt.Sprint(info.BackendType),
		Driver:   info.DriverDescription,
	}
}

// adapterName picks the first readable name. GL adapters report their device as a bare hex id.
func adapterName(names ...string) string {
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" && !hexID.MatchString(n) {
			return n
		}
	}
	return "Unknown Adapter"
}

// clampAdapterIndex maps a requested adapter index into [0, count).
func clampAdapterIndex(index, count int) int {
	if count <= 0 {
		return 0
	}
	return min(max(index, 0), count-1)
}
