package training

import "fmt"

// MovingAvg is a bounded-window running mean used to smooth per-minibatch
// metric values for progress display. It is distinct from the full-epoch
// arithmetic mean written to the training log.
type MovingAvg struct {
	window int
	values []float64
	sum    float64
	next   int
	filled bool
}

// NewMovingAvg creates a moving average over the last window values
func NewMovingAvg(window int) *MovingAvg {
	if window <= 0 {
		window = 1
	}

	return &MovingAvg{
		window: window,
		values: make([]float64, 0, window),
	}
}

// Add feeds one value into the window, evicting the oldest once full
func (m *MovingAvg) Add(v float64) {
	if !m.filled {
		m.values = append(m.values, v)
		m.sum += v
		if len(m.values) == m.window {
			m.filled = true
		}
		return
	}

	m.sum += v - m.values[m.next]
	m.values[m.next] = v
	m.next = (m.next + 1) % m.window
}

// Value returns the mean of the values currently in the window.
// Returns 0 before any value has been added.
func (m *MovingAvg) Value() float64 {
	if len(m.values) == 0 {
		return 0
	}

	return m.sum / float64(len(m.values))
}

// Count returns the number of values currently in the window
func (m *MovingAvg) Count() int {
	return len(m.values)
}

// metricTracker accumulates one epoch's worth of metric vectors: a moving
// average per metric for display, running sums for the epoch training
// average, and separate sums plus a counter for the testing average.
type metricTracker struct {
	names      []string
	smooth     []*MovingAvg
	trainSums  []float64
	trainSteps int
	testSums   []float64
	testSteps  int
}

func newMetricTracker(names []string, window int) *metricTracker {
	mt := &metricTracker{
		names:     names,
		smooth:    make([]*MovingAvg, len(names)),
		trainSums: make([]float64, len(names)),
		testSums:  make([]float64, len(names)),
	}

	for i := range mt.smooth {
		mt.smooth[i] = NewMovingAvg(window)
	}

	return mt
}

// checkLen guards the positional alignment between metric names and a
// metric vector returned by the model
func (mt *metricTracker) checkLen(vals []float64) error {
	if len(vals) != len(mt.names) {
		return fmt.Errorf("metric vector length mismatch: model returned %d values for %d metrics", len(vals), len(mt.names))
	}

	return nil
}

func (mt *metricTracker) observeTrain(vals []float64) error {
	if err := mt.checkLen(vals); err != nil {
		return err
	}

	for i, v := range vals {
		mt.smooth[i].Add(v)
		mt.trainSums[i] += v
	}
	mt.trainSteps++

	return nil
}

func (mt *metricTracker) observeTest(vals []float64) error {
	if err := mt.checkLen(vals); err != nil {
		return err
	}

	for i, v := range vals {
		mt.testSums[i] += v
	}
	mt.testSteps++

	return nil
}

// smoothed returns the current moving-average value per metric name
func (mt *metricTracker) smoothed() []float64 {
	vals := make([]float64, len(mt.names))
	for i, avg := range mt.smooth {
		vals[i] = avg.Value()
	}

	return vals
}

// trainAverages returns the full-epoch training mean per metric
func (mt *metricTracker) trainAverages() []float64 {
	avgs := make([]float64, len(mt.names))
	for i, sum := range mt.trainSums {
		avgs[i] = sum / float64(mt.trainSteps)
	}

	return avgs
}

// testAverages returns the mean over all test steps run this epoch
func (mt *metricTracker) testAverages() []float64 {
	avgs := make([]float64, len(mt.names))
	for i, sum := range mt.testSums {
		avgs[i] = sum / float64(mt.testSteps)
	}

	return avgs
}

// asMap pairs metric names with values for recorders and progress display
func (mt *metricTracker) asMap(vals []float64) map[string]float64 {
	m := make(map[string]float64, len(mt.names))
	for i, name := range mt.names {
		m[name] = vals[i]
	}

	return m
}
