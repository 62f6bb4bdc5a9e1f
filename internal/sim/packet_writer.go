package sim

import "firec2-sim/internal/telemetry"

// PacketWriter handles per-send packet records.
type PacketWriter interface {
	WritePacket(telemetry.PacketRow) error
}

// Optional: writers may support batch mode for packet records.
type batchPacketWriter interface {
	WritePackets([]telemetry.PacketRow) error
}
