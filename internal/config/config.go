// YAML config loader with CUE validation integration
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrInvalid marks configuration faults. They are fatal at startup:
// a run built from a bad config would not be the experiment it claims.
var ErrInvalid = errors.New("invalid configuration")

// GridConfig defines the sensor grid topology, node IDs row-major.
type GridConfig struct {
	Width    int     `yaml:"width"`
	Height   int     `yaml:"height"`
	SpacingM float64 `yaml:"spacing_m"`
}

// FireConfig defines ignition timing and the heat transfer physics.
type FireConfig struct {
	OriginNode        int     `yaml:"origin_node"`
	StartS            float64 `yaml:"start_s"`
	AmbientMinC       float64 `yaml:"ambient_min_c"`
	AmbientMaxC       float64 `yaml:"ambient_max_c"`
	FireTempC         float64 `yaml:"fire_temp_c"`
	DiffusionRate     float64 `yaml:"diffusion_rate"`
	DiffusionCutoff   float64 `yaml:"diffusion_cutoff"`
	Inertia           float64 `yaml:"inertia"`
	Decay             float64 `yaml:"decay"`
	IgnitionThreshold float64 `yaml:"ignition_threshold"`
	SpreadRate        float64 `yaml:"spread_rate"`
	SpreadDelayS      float64 `yaml:"spread_delay_s"`
	BurnoutS          float64 `yaml:"burnout_s"`
	NoiseC            float64 `yaml:"noise_c"`
}

// CovertConfig defines the covert channel encoding and the backdoor
// trigger condition.
type CovertConfig struct {
	BitPattern         string  `yaml:"bit_pattern"`
	BaseIntervalS      float64 `yaml:"base_interval_s"`
	DelayDeltaS        float64 `yaml:"delay_delta_s"`
	JitterS            float64 `yaml:"jitter_s"`
	ExfilPeriodS       float64 `yaml:"exfil_period_s"`
	ExfilHistoryWindow int     `yaml:"exfil_history_window"`
	MinExfilPeriodS    float64 `yaml:"min_exfil_period_s"`
	DetectThresholdC   float64 `yaml:"detect_threshold_c"`
	ActivationAfterS   float64 `yaml:"activation_after_s"`
}

// AttackConfig names the compromised nodes and the downlink cadence.
type AttackConfig struct {
	Nodes            []int   `yaml:"nodes"`
	CommandIntervalS float64 `yaml:"command_interval_s"`
	CommandJitterS   float64 `yaml:"command_jitter_s"`
	CommandStartS    float64 `yaml:"command_start_s"`
}

// NetworkConfig defines the lossy fabric between nodes and cloud.
type NetworkConfig struct {
	SendIntervalS   float64 `yaml:"send_interval_s"`
	DropProbability float64 `yaml:"drop_probability"`
	LinkDelayMs     float64 `yaml:"link_delay_ms"`
	JitterMinMs     float64 `yaml:"jitter_min_ms"`
	JitterMaxMs     float64 `yaml:"jitter_max_ms"`
}

// RunConfig defines the clock: horizon, physical tick and row sampling.
type RunConfig struct {
	StopAfterS         float64 `yaml:"stop_after_s"`
	TickS              float64 `yaml:"tick_s"`
	StateSampleEvery   int     `yaml:"state_sample_every"`
	MetricsSampleEvery int     `yaml:"metrics_sample_every"`
}

// AlarmConfig defines the cloud-side fire alarm.
type AlarmConfig struct {
	ThresholdC float64 `yaml:"threshold_c"`
	CooldownS  float64 `yaml:"cooldown_s"`
}

// Config is the root configuration for one run.
type Config struct {
	Seed    int64         `yaml:"seed"`
	Grid    GridConfig    `yaml:"grid"`
	Fire    FireConfig    `yaml:"fire"`
	Covert  CovertConfig  `yaml:"covert"`
	Attack  AttackConfig  `yaml:"attack"`
	Network NetworkConfig `yaml:"network"`
	Run     RunConfig     `yaml:"run"`
	Alarm   AlarmConfig   `yaml:"alarm"`
}

// Default returns the research baseline: the 8x10 grid with five
// implants around the ignition point.
func Default() Config {
	return Config{
		Seed: 42,
		Grid: GridConfig{Width: 8, Height: 10, SpacingM: 12},
		Fire: FireConfig{
			OriginNode:        35,
			StartS:            25,
			AmbientMinC:       20,
			AmbientMaxC:       25,
			FireTempC:         85,
			DiffusionRate:     0.45,
			DiffusionCutoff:   3,
			Inertia:           0.35,
			Decay:             0.88,
			IgnitionThreshold: 0.45,
			SpreadRate:        0.22,
			SpreadDelayS:      4,
			BurnoutS:          140,
			NoiseC:            0.3,
		},
		Covert: CovertConfig{
			BitPattern:         "10110011100101101011001110010110",
			BaseIntervalS:      2.5,
			DelayDeltaS:        0.35,
			JitterS:            0.2,
			ExfilPeriodS:       6,
			ExfilHistoryWindow: 20,
			MinExfilPeriodS:    1,
			DetectThresholdC:   55,
			ActivationAfterS:   25,
		},
		Attack: AttackConfig{
			Nodes:            []int{25, 26, 34, 36, 45},
			CommandIntervalS: 15,
			CommandJitterS:   2,
			CommandStartS:    35,
		},
		Network: NetworkConfig{
			SendIntervalS:   2,
			DropProbability: 0.03,
			LinkDelayMs:     2,
			JitterMinMs:     0.1,
			JitterMaxMs:     0.5,
		},
		Run: RunConfig{
			StopAfterS:         240,
			TickS:              1,
			StateSampleEvery:   5,
			MetricsSampleEvery: 10,
		},
		Alarm: AlarmConfig{ThresholdC: 70, CooldownS: 5},
	}
}

// Load reads a YAML config, validates it against the embedded CUE
// schema, fills unset fields from Default and runs structural checks.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := validateCue(data, schemaCUE); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate runs the cross-field checks the CUE schema cannot express.
func (c *Config) Validate() error {
	size := c.Grid.Width * c.Grid.Height
	if c.Grid.Width < 1 || c.Grid.Height < 1 || c.Grid.SpacingM <= 0 {
		return fmt.Errorf("%w: grid %dx%d spacing %.1f", ErrInvalid, c.Grid.Width, c.Grid.Height, c.Grid.SpacingM)
	}
	if c.Fire.OriginNode < 0 || c.Fire.OriginNode >= size {
		return fmt.Errorf("%w: fire.origin_node %d outside grid of %d nodes", ErrInvalid, c.Fire.OriginNode, size)
	}
	if c.Fire.AmbientMinC >= c.Fire.AmbientMaxC {
		return fmt.Errorf("%w: ambient band [%.1f, %.1f] is empty", ErrInvalid, c.Fire.AmbientMinC, c.Fire.AmbientMaxC)
	}
	if c.Fire.FireTempC <= c.Fire.AmbientMaxC {
		return fmt.Errorf("%w: fire_temp_c %.1f not above ambient", ErrInvalid, c.Fire.FireTempC)
	}

	seen := make(map[int]bool, len(c.Attack.Nodes))
	for _, id := range c.Attack.Nodes {
		if id < 0 || id >= size {
			return fmt.Errorf("%w: attack node %d outside grid of %d nodes", ErrInvalid, id, size)
		}
		if seen[id] {
			return fmt.Errorf("%w: attack node %d listed twice", ErrInvalid, id)
		}
		seen[id] = true
	}

	for _, ch := range c.Covert.BitPattern {
		if ch != '0' && ch != '1' {
			return fmt.Errorf("%w: bit_pattern %q is not binary", ErrInvalid, c.Covert.BitPattern)
		}
	}
	if c.Covert.BitPattern == "" {
		return fmt.Errorf("%w: bit_pattern is empty", ErrInvalid)
	}
	if c.Covert.MinExfilPeriodS > c.Covert.ExfilPeriodS {
		return fmt.Errorf("%w: min_exfil_period_s %.1f above exfil_period_s %.1f", ErrInvalid, c.Covert.MinExfilPeriodS, c.Covert.ExfilPeriodS)
	}
	if c.Network.JitterMinMs > c.Network.JitterMaxMs {
		return fmt.Errorf("%w: network jitter bounds inverted", ErrInvalid)
	}
	if c.Run.TickS <= 0 || c.Run.StopAfterS <= 0 {
		return fmt.Errorf("%w: run timing tick %.2f stop %.2f", ErrInvalid, c.Run.TickS, c.Run.StopAfterS)
	}
	return nil
}
