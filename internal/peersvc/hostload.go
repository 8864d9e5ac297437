package peersvc

import (
	"github.com/shirou/gopsutil/v4/cpu"
)

// hostCPULoad samples instantaneous host-wide CPU utilization as a 0..1
// fraction, for folding into currentLoad's UPDATE_LOAD report. A zero
// interval asks gopsutil for the delta since its last call rather than
// blocking the heartbeat worker on a fresh sampling window; any error
// (e.g. an unsupported platform) degrades to 0 rather than failing the
// heartbeat.
func hostCPULoad() float64 {
	percents, err := cpu.Percent(0, false)
	if err != nil || len(percents) == 0 {
		return 0
	}
	return percents[0] / 100
}
