package sim

import "firec2-sim/internal/telemetry"

// MultiWriter fans rows out to multiple sinks. Each sink is registered
// once for every stream interface it implements, so a writer that only
// cares about covert events never sees state rows.
type MultiWriter struct {
	states  []NodeStateWriter
	coverts []CovertEventWriter
	fires   []FireSampleWriter
	packets []PacketWriter
	attacks []AttackEventWriter
	metrics []NetworkMetricsWriter
	admins  []AdminStatusWriter
}

// NewMultiWriter registers each sink for the streams it handles.
func NewMultiWriter(sinks ...any) *MultiWriter {
	mw := &MultiWriter{}
	for _, s := range sinks {
		if w, ok := s.(NodeStateWriter); ok {
			mw.states = append(mw.states, w)
		}
		if w, ok := s.(CovertEventWriter); ok {
			mw.coverts = append(mw.coverts, w)
		}
		if w, ok := s.(FireSampleWriter); ok {
			mw.fires = append(mw.fires, w)
		}
		if w, ok := s.(PacketWriter); ok {
			mw.packets = append(mw.packets, w)
		}
		if w, ok := s.(AttackEventWriter); ok {
			mw.attacks = append(mw.attacks, w)
		}
		if w, ok := s.(NetworkMetricsWriter); ok {
			mw.metrics = append(mw.metrics, w)
		}
		if w, ok := s.(AdminStatusWriter); ok {
			mw.admins = append(mw.admins, w)
		}
	}
	return mw
}

// SetAdminAddr forwards the admin console address to sinks that render it.
func (mw *MultiWriter) SetAdminAddr(addr string) {
	for _, w := range mw.admins {
		w.SetAdminAddr(addr)
	}
}

// WriteState sends a node state row to all state writers.
func (mw *MultiWriter) WriteState(row telemetry.NodeStateRow) error {
	for _, w := range mw.states {
		if err := w.WriteState(row); err != nil {
			return err
		}
	}
	return nil
}

// WriteStates sends multiple state rows, using batch mode where supported.
func (mw *MultiWriter) WriteStates(rows []telemetry.NodeStateRow) error {
	for _, w := range mw.states {
		if bw, ok := w.(batchNodeStateWriter); ok {
			if err := bw.WriteStates(rows); err != nil {
				return err
			}
			continue
		}
		for _, r := range rows {
			if err := w.WriteState(r); err != nil {
				return err
			}
		}
	}
	return nil
}

// WriteCovertEvent sends a covert event to all covert writers.
func (mw *MultiWriter) WriteCovertEvent(row telemetry.CovertEventRow) error {
	for _, w := range mw.coverts {
		if err := w.WriteCovertEvent(row); err != nil {
			return err
		}
	}
	return nil
}

// WriteCovertEvents sends multiple covert events, using batch mode where supported.
func (mw *MultiWriter) WriteCovertEvents(rows []telemetry.CovertEventRow) error {
	for _, w := range mw.coverts {
		if bw, ok := w.(batchCovertEventWriter); ok {
			if err := bw.WriteCovertEvents(rows); err != nil {
				return err
			}
			continue
		}
		for _, r := range rows {
			if err := w.WriteCovertEvent(r); err != nil {
				return err
			}
		}
	}
	return nil
}

// WriteFireSample sends a fire sample to all fire writers.
func (mw *MultiWriter) WriteFireSample(row telemetry.FireSampleRow) error {
	for _, w := range mw.fires {
		if err := w.WriteFireSample(row); err != nil {
			return err
		}
	}
	return nil
}

// WriteFireSamples sends multiple fire samples, using batch mode where supported.
func (mw *MultiWriter) WriteFireSamples(rows []telemetry.FireSampleRow) error {
	for _, w := range mw.fires {
		if bw, ok := w.(batchFireSampleWriter); ok {
			if err := bw.WriteFireSamples(rows); err != nil {
				return err
			}
			continue
		}
		for _, r := range rows {
			if err := w.WriteFireSample(r); err != nil {
				return err
			}
		}
	}
	return nil
}

// WritePacket sends a packet record to all packet writers.
func (mw *MultiWriter) WritePacket(row telemetry.PacketRow) error {
	for _, w := range mw.packets {
		if err := w.WritePacket(row); err != nil {
			return err
		}
	}
	return nil
}

// WritePackets sends multiple packet records, using batch mode where supported.
func (mw *MultiWriter) WritePackets(rows []telemetry.PacketRow) error {
	for _, w := range mw.packets {
		if bw, ok := w.(batchPacketWriter); ok {
			if err := bw.WritePackets(rows); err != nil {
				return err
			}
			continue
		}
		for _, r := range rows {
			if err := w.WritePacket(r); err != nil {
				return err
			}
		}
	}
	return nil
}

// WriteAttackEvent sends an attack event to all attack writers.
func (mw *MultiWriter) WriteAttackEvent(row telemetry.AttackEventRow) error {
	for _, w := range mw.attacks {
		if err := w.WriteAttackEvent(row); err != nil {
			return err
		}
	}
	return nil
}

// WriteAttackEvents sends multiple attack events, using batch mode where supported.
func (mw *MultiWriter) WriteAttackEvents(rows []telemetry.AttackEventRow) error {
	for _, w := range mw.attacks {
		if bw, ok := w.(batchAttackEventWriter); ok {
			if err := bw.WriteAttackEvents(rows); err != nil {
				return err
			}
			continue
		}
		for _, r := range rows {
			if err := w.WriteAttackEvent(r); err != nil {
				return err
			}
		}
	}
	return nil
}

// WriteNetworkMetrics sends a link-quality row to all metrics writers.
func (mw *MultiWriter) WriteNetworkMetrics(row telemetry.NetworkMetricsRow) error {
	for _, w := range mw.metrics {
		if err := w.WriteNetworkMetrics(row); err != nil {
			return err
		}
	}
	return nil
}

// WriteNetworkMetricsBatch sends multiple link-quality rows, using batch
// mode where supported.
func (mw *MultiWriter) WriteNetworkMetricsBatch(rows []telemetry.NetworkMetricsRow) error {
	for _, w := range mw.metrics {
		if bw, ok := w.(batchNetworkMetricsWriter); ok {
			if err := bw.WriteNetworkMetricsBatch(rows); err != nil {
				return err
			}
			continue
		}
		for _, r := range rows {
			if err := w.WriteNetworkMetrics(r); err != nil {
				return err
			}
		}
	}
	return nil
}
