package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// The lamp emits three measurements: per-frame throughput, pattern
// run durations and program outcomes. All writes are fire-and-forget;
// a disconnected client drops the point silently and batch failures
// come back through the SetOnError callback.

// WriteFrameMetric records one published frame: how many cells the
// delta touched and the effective frame rate over the recent window.
func (c *Client) WriteFrameMetric(cellsChanged int, fps float64) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint("frame", nil,
		map[string]interface{}{
			"cells_changed": cellsChanged,
			"fps":           fps,
		}, time.Now()))
}

// WritePatternRun records a finished pattern run, written when a
// pattern stops, is replaced, or completes on its own. The name is a
// tag so dashboards can group by pattern.
func (c *Client) WritePatternRun(pattern string, duration time.Duration) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint("pattern",
		map[string]string{"pattern": pattern},
		map[string]interface{}{"duration_ms": duration.Milliseconds()},
		time.Now()))
}

// WriteProgramRun records a program reaching a terminal state, with
// status "completed" or "cancelled".
func (c *Client) WriteProgramRun(program string, status string, stepsRun int, duration time.Duration) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint("program",
		map[string]string{"program": program, "status": status},
		map[string]interface{}{
			"steps_run":   stepsRun,
			"duration_ms": duration.Milliseconds(),
		}, time.Now()))
}
