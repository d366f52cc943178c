package suite

import (
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/Carmen-Shannon/oxy-perf/engine/device"
	"github.com/muesli/termenv"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// HostInfo describes the machine the benchmark ran on.
type HostInfo struct {
	CPU           string
	LogicalCores  int
	MemoryTotalMB uint64
	OS            string
}

// DetectHost queries the host with gopsutil. Fields that cannot be read are left empty.
//
// Returns:
//   - HostInfo: the host description
func DetectHost() HostInfo {
	info := HostInfo{OS: runtime.GOOS + "/" + runtime.GOARCH}

	if cpus, err := cpu.Info(); err == nil && len(cpus) > 0 {
		info.CPU = strings.TrimSpace(cpus[0].ModelName)
	}
	if n, err := cpu.Counts(true); err == nil {
		info.LogicalCores = n
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		info.MemoryTotalMB = vm.Total / (1024 * 1024)
	}
	if h, err := host.Info(); err == nil && h.Platform != "" {
		info.OS = fmt.Sprintf("%s %s (%s)", h.Platform, h.PlatformVersion, info.OS)
	}
	return info
}

// Report writes the results table, colored with termenv.
type Report struct {
	out  *termenv.Output
	host HostInfo
}

// NewReport creates a report writing to w. The color profile is detected from w unless overridden.
//
// Parameters:
//   - w: the destination
//   - host: the host header
//   - options: termenv output options, e.g. termenv.WithProfile(termenv.Ascii)
//
// Returns:
//   - *Report: the report
func NewReport(w io.Writer, host HostInfo, options ...termenv.OutputOption) *Report {
	return &Report{
		out:  termenv.NewOutput(w, options...),
		host: host,
	}
}

// Header prints the host and adapter the run uses.
//
// Parameters:
//   - adapter: the adapter the device opened
func (r *Report) Header(adapter device.AdapterInfo) {
	title := r.out.String("oxy-perf").Bold()
	fmt.Fprintf(r.out, "%s\n", title)
	fmt.Fprintf(r.out, "Host:    %s, %d logical cores, %d MB\n", r.host.CPU, r.host.LogicalCores, r.host.MemoryTotalMB)
	fmt.Fprintf(r.out, "OS:      %s\n", r.host.OS)
	fmt.Fprintf(r.out, "Adapter: %s\n\n", adapter)
}

// Progress prints one frame marker: "." for a warm-up frame and "X" for a benchmark frame.
//
// Parameters:
//   - warmup: true for a warm-up frame
func (r *Report) Progress(warmup bool) {
	if warmup {
		fmt.Fprint(r.out, ".")
		return
	}
	fmt.Fprint(r.out, r.out.String("X").Foreground(r.out.Color("6")))
}

// Table prints one line per row: total, average and standard deviation in milliseconds, then the
// ratio against the comparison case. Faster than the comparison prints green, slower prints red.
//
// Parameters:
//   - compareTo: the comparison case name
//   - rows: the summarized rows
func (r *Report) Table(compareTo string, rows []Row) {
	fmt.Fprintf(r.out, "\n\nPerformance compared to %s\n\n", compareTo)

	width := 0
	for _, row := range rows {
		width = max(width, len(row.Name))
	}

	for _, row := range rows {
		ratio := r.out.String(fmt.Sprintf("%.3fx", row.Ratio))
		switch {
		case row.Name == compareTo:
			ratio = ratio.Bold()
		case row.Ratio > 1:
			ratio = ratio.Foreground(r.out.Color("2"))
		case row.Ratio < 1:
			ratio = ratio.Foreground(r.out.Color("1"))
		}
		fmt.Fprintf(r.out, "%-*s  %.3fms %.3fms %.3fms %s\n", width+1, row.Name+":", row.Total, row.Average, row.StdDev, ratio)
	}
}
