package main

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"

	"github.com/gogpu/rq"
	"github.com/gogpu/rq/indirect"
)

// frameReport is what one frame produced.
type frameReport struct {
	Frame int

	Collect time.Duration
	Render  time.Duration

	Metrics    rq.Metrics
	Incomplete int
	Calls      int
	Draws      int
	Pool       indirect.Stats
}

var (
	label = color.New(color.FgCyan).SprintFunc()
	good  = color.New(color.FgGreen).SprintFunc()
	warn  = color.New(color.FgYellow).SprintFunc()
)

func (r frameReport) print(w io.Writer) {
	incomplete := good(r.Incomplete)
	if r.Incomplete > 0 {
		incomplete = warn(r.Incomplete)
	}
	fmt.Fprintf(w, "%s %3d  %s %5d  %s %6d  %s %7d  %s %s  %s %d/%d (%d B)  %s %s / %s\n",
		label("frame"), r.Frame,
		label("draws"), r.Metrics.DrawCount,
		label("instances"), r.Metrics.InstanceCount,
		label("faces"), r.Metrics.FaceCount,
		label("incomplete"), incomplete,
		label("pool"), r.Pool.InUse, r.Pool.Allocated, r.Pool.InUseBytes,
		label("time"), r.Collect.Round(time.Microsecond), r.Render.Round(time.Microsecond),
	)
}

// batchRatio is instances per draw command.
func batchRatio(m rq.Metrics) float64 {
	if m.DrawCount == 0 {
		return 0
	}
	return float64(m.InstanceCount) / float64(m.DrawCount)
}

func printTotals(w io.Writer, frames int, total rq.Metrics, compiled uint64, elapsed string) {
	fmt.Fprintf(w, "%s %d frames in %s: %d draws, %d instances (%.1f per draw), %d pipelines compiled\n",
		good("done"), frames, elapsed, total.DrawCount, total.InstanceCount, batchRatio(total), compiled)
}
