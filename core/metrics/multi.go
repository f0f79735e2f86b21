package metrics

// MultiSink fans formation records out to multiple sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordFormation forwards the record to all sinks, returning the first error encountered.
func (m *MultiSink) RecordFormation(rec FormationRecord) error {
	for _, s := range m.Sinks {
		if err := s.RecordFormation(rec); err != nil {
			return err
		}
	}
	return nil
}

// RecordUnassigned forwards unassigned orders when supported by the sink.
func (m *MultiSink) RecordUnassigned(evs []UnassignedEvent) error {
	for _, s := range m.Sinks {
		if r, ok := s.(UnassignedRecorder); ok {
			if err := r.RecordUnassigned(evs); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordRakeLoads forwards rake loads when supported by the sink.
func (m *MultiSink) RecordRakeLoads(evs []RakeLoadEvent) error {
	for _, s := range m.Sinks {
		if r, ok := s.(RakeLoadRecorder); ok {
			if err := r.RecordRakeLoads(evs); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordInconsistency forwards discarded assignments when supported by the sink.
func (m *MultiSink) RecordInconsistency(ev InconsistencyEvent) error {
	for _, s := range m.Sinks {
		if r, ok := s.(InconsistencyRecorder); ok {
			if err := r.RecordInconsistency(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordRunFailure forwards failed runs when supported by the sink.
func (m *MultiSink) RecordRunFailure(ev RunFailureEvent) error {
	for _, s := range m.Sinks {
		if r, ok := s.(RunFailureRecorder); ok {
			if err := r.RecordRunFailure(ev); err != nil {
				return err
			}
		}
	}
	return nil
}
