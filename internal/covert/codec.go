// Package covert implements the value-domain and timing-domain covert
// channel carried inside otherwise benign sensor traffic: hundredths-digit
// LSB embedding for temperature readings and delay modulation for
// transmission timing.
package covert

import (
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"
)

// Params are the timing-channel parameters shared by encoder and decoder.
type Params struct {
	BaseInterval time.Duration // nominal gap between sends
	DelayDelta   time.Duration // extra delay encoding a 1 bit
	Jitter       time.Duration // uniform noise applied to every send
}

// Encoder maps pattern bits onto carrier signals. It holds no state;
// cursor bookkeeping lives in ChannelState.
type Encoder struct {
	P Params
}

// EmbedLSB hides bit in the least significant bit of the hundredths
// digit of value. The perturbation never exceeds 0.02, well below the
// sensor noise the readings already carry.
func (Encoder) EmbedLSB(value float64, bit int) float64 {
	whole := math.Floor(value)
	digit := int(math.Round((value - whole) * 100))
	digit = digit&^1 | (bit & 1)
	return whole + float64(digit)/100
}

// Delay returns the transmission delay encoding bit: the base interval,
// plus the delta when bit is 1, plus fresh uniform jitter. Every call
// draws jitter, so no two gaps collapse to the same exact value.
func (e Encoder) Delay(bit int, r *rand.Rand) time.Duration {
	d := e.P.BaseInterval
	if bit&1 == 1 {
		d += e.P.DelayDelta
	}
	d += jitter(e.P.Jitter, r)
	if floor := e.P.DelayDelta / 4; d < floor {
		d = floor
	}
	return d
}

// Decoder recovers bits from carrier signals. Decoding never advances
// any cursor.
type Decoder struct {
	P Params
}

// ExtractLSB recovers the bit hidden by EmbedLSB. It survives a float32
// round trip for any plausible Celsius reading.
func (Decoder) ExtractLSB(value float64) int {
	frac := value - math.Floor(value)
	return int(math.Round(frac*100)) & 1
}

// ClassifyGap decodes the timing bit from an observed inter-arrival gap:
// 1 when the residual over the base interval exceeds half the delta.
// Classification is exact whenever the superimposed jitter stays inside
// half the delta.
func (d Decoder) ClassifyGap(gap time.Duration) int {
	if gap-d.P.BaseInterval > d.P.DelayDelta/2 {
		return 1
	}
	return 0
}

func jitter(max time.Duration, r *rand.Rand) time.Duration {
	if max <= 0 {
		return 0
	}
	return time.Duration((r.Float64()*2 - 1) * float64(max))
}

// ChannelState is one node's private position in its bit pattern. Each
// compromised node owns exactly one; cursors never cross nodes.
type ChannelState struct {
	pattern []int
	cursor  int
}

// NewChannelState parses a pattern of '0' and '1' runes.
func NewChannelState(pattern string) (*ChannelState, error) {
	bits, err := parsePattern(pattern)
	if err != nil {
		return nil, err
	}
	return &ChannelState{pattern: bits}, nil
}

func parsePattern(pattern string) ([]int, error) {
	if pattern == "" {
		return nil, fmt.Errorf("bit pattern is empty")
	}
	bits := make([]int, 0, len(pattern))
	for _, c := range pattern {
		switch c {
		case '0':
			bits = append(bits, 0)
		case '1':
			bits = append(bits, 1)
		default:
			return nil, fmt.Errorf("bit pattern contains %q, want only 0 and 1", c)
		}
	}
	return bits, nil
}

// NextBit returns the bit under the cursor and advances it, wrapping at
// the end of the pattern. Exactly one bit is consumed per encode.
func (s *ChannelState) NextBit() int {
	bit := s.pattern[s.cursor]
	s.cursor = (s.cursor + 1) % len(s.pattern)
	return bit
}

// Cursor returns the current cursor position.
func (s *ChannelState) Cursor() int { return s.cursor }

// Len returns the pattern length.
func (s *ChannelState) Len() int { return len(s.pattern) }

// Pattern returns the pattern as a string of '0' and '1'.
func (s *ChannelState) Pattern() string {
	var b strings.Builder
	for _, bit := range s.pattern {
		b.WriteByte(byte('0' + bit))
	}
	return b.String()
}

// SetPattern swaps in a new pattern and resets the cursor.
func (s *ChannelState) SetPattern(pattern string) error {
	bits, err := parsePattern(pattern)
	if err != nil {
		return err
	}
	s.pattern = bits
	s.cursor = 0
	return nil
}
