package domain

import m "clonex.dev/pkg/clonex/internal/model"

// SpeciesCounters is the per-species snapshot stored at every history
// point.
type SpeciesCounters struct {
	CurrentCells uint64
	Duplications uint64
	Deaths       uint64
	Switches     uint64
}

// StatPoint is one time-indexed entry of the statistics history.
// Counters is indexed by species id; species registered after the
// point was taken are simply absent.
type StatPoint struct {
	Time     float64
	Counters []SpeciesCounters
}

// StatisticsRecorder maintains the monotone time-indexed history of
// per-species counters. A history delta of zero disables periodic
// sampling; the final point of a run is recorded regardless.
type StatisticsRecorder struct {
	delta      float64
	lastSample float64
	history    []StatPoint
}

// NewStatisticsRecorder returns a recorder with periodic sampling
// disabled.
func NewStatisticsRecorder() *StatisticsRecorder {
	return &StatisticsRecorder{}
}

// Delta returns the history sampling interval.
func (s *StatisticsRecorder) Delta() float64 { return s.delta }

// SetDelta updates the sampling interval; non-positive values disable
// periodic sampling.
func (s *StatisticsRecorder) SetDelta(delta float64) {
	if delta < 0 {
		delta = 0
	}
	s.delta = delta
}

// Observe appends a history point when the periodic sampling interval
// has elapsed since the last recorded point.
func (s *StatisticsRecorder) Observe(time float64, registry *SpeciesRegistry) {
	if s.delta == 0 || time < s.lastSample+s.delta {
		return
	}
	s.append(time, registry)
}

// Finalize records the closing point of a run. A point recorded at
// the same time is replaced, keeping the history strictly increasing.
func (s *StatisticsRecorder) Finalize(time float64, registry *SpeciesRegistry) {
	if n := len(s.history); n > 0 && s.history[n-1].Time == time {
		s.history = s.history[:n-1]
	}
	s.append(time, registry)
}

func (s *StatisticsRecorder) append(time float64, registry *SpeciesRegistry) {
	counters := make([]SpeciesCounters, registry.NumSpecies())
	for id := range counters {
		state := registry.state(m.SpeciesID(id))
		counters[id] = SpeciesCounters{
			CurrentCells: state.CurrentCells,
			Duplications: state.Duplications,
			Deaths:       state.Deaths,
			Switches:     state.Switches,
		}
	}

	s.history = append(s.history, StatPoint{Time: time, Counters: counters})
	s.lastSample = time
}

// History returns all recorded points in time order.
func (s *StatisticsRecorder) History() []StatPoint { return s.history }

// LastTime returns the time of the most recent history point.
func (s *StatisticsRecorder) LastTime() (float64, bool) {
	if len(s.history) == 0 {
		return 0, false
	}

	return s.history[len(s.history)-1].Time, true
}

// Window returns the history points with minTime <= Time <= maxTime.
func (s *StatisticsRecorder) Window(minTime, maxTime float64) []StatPoint {
	var points []StatPoint
	for _, point := range s.history {
		if point.Time < minTime {
			continue
		}
		if point.Time > maxTime {
			break
		}
		points = append(points, point)
	}

	return points
}

// Restore rebuilds the recorder from a saved history.
func (s *StatisticsRecorder) Restore(delta float64, history []StatPoint) {
	s.delta = delta
	s.history = history
	s.lastSample = 0
	if n := len(history); n > 0 {
		s.lastSample = history[n-1].Time
	}
}
