package training

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// ProgressBar renders tqdm-style training progress with smoothed metric
// values appended after the bar. Metric values are rendered in the order
// the names were given, so the line is stable across refreshes.
type ProgressBar struct {
	out         io.Writer
	description string
	total       int
	current     int
	startTime   time.Time
	width       int
	showRate    bool
	showETA     bool
	names       []string
	values      []float64
}

// NewProgressBar creates a progress bar writing to out
func NewProgressBar(out io.Writer, description string, total int, names []string) *ProgressBar {
	return &ProgressBar{
		out:         out,
		description: description,
		total:       total,
		startTime:   time.Now(),
		width:       40, // character width of the bar itself
		showRate:    true,
		showETA:     true,
		names:       names,
	}
}

// Update advances the bar to step and refreshes the metric values
func (pb *ProgressBar) Update(step int, values []float64) {
	pb.current = step
	pb.values = values
	pb.render()
}

// Finish completes the bar and moves to a new line
func (pb *ProgressBar) Finish() {
	pb.current = pb.total
	pb.render()
	fmt.Fprintln(pb.out)
}

// render draws the progress line, overwriting the previous one
func (pb *ProgressBar) render() {
	percentage := float64(pb.current) / float64(pb.total)
	if percentage > 1.0 {
		percentage = 1.0
	}

	filled := int(percentage * float64(pb.width))
	if filled > pb.width {
		filled = pb.width
	}

	bar := strings.Repeat("█", filled) + strings.Repeat(" ", pb.width-filled)

	elapsed := time.Since(pb.startTime)
	var eta time.Duration
	var rate float64

	if pb.current > 0 {
		rate = float64(pb.current) / elapsed.Seconds()
		if percentage > 0 {
			totalTime := time.Duration(float64(elapsed) / percentage)
			eta = totalTime - elapsed
		}
	}

	line := fmt.Sprintf("\r%s: %3.0f%%|%s| %d/%d",
		pb.description,
		percentage*100,
		bar,
		pb.current,
		pb.total,
	)

	if pb.showETA && eta > 0 {
		line += fmt.Sprintf(" [%s<%s",
			formatDuration(elapsed),
			formatDuration(eta),
		)
	} else {
		line += fmt.Sprintf(" [%s<00:00",
			formatDuration(elapsed),
		)
	}

	if pb.showRate && rate > 0 {
		line += fmt.Sprintf(", %.2fbatch/s", rate)
	}

	for i, name := range pb.names {
		if i < len(pb.values) {
			line += fmt.Sprintf(", %s=%.3f", name, pb.values[i])
		}
	}

	line += "]"

	fmt.Fprint(pb.out, line)
}

// formatDuration formats duration as MM:SS
func formatDuration(d time.Duration) string {
	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}
