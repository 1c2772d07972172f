package waitstate

import (
	"encoding/json"
	"fmt"
	"os"
)

// RegionCount is the number of 16 MiB regions addressed by bits [27:24].
const RegionCount = 16

// RegionConfig describes the bus of one memory region.
type RegionConfig struct {
	// Name is informational.
	Name string `json:"name"`

	// BusWidth is the data bus width in bits: 8, 16 or 32. Accesses wider
	// than the bus are split into a non-sequential access followed by
	// sequential ones.
	BusWidth uint32 `json:"bus_width"`

	// NonSequential is the number of wait states added to a
	// non-sequential access.
	NonSequential uint32 `json:"non_sequential"`

	// Sequential is the number of wait states added to a sequential access.
	Sequential uint32 `json:"sequential"`
}

// Config holds the wait states of every region. Regions are indexed by
// address bits [27:24]; addresses above 0x0FFFFFFF fall back to Unmapped.
type Config struct {
	Regions  []RegionConfig `json:"regions"`
	Unmapped RegionConfig   `json:"unmapped"`
}

// DefaultConfig returns the power-on wait states of the handheld
// (WAITCNT = 0).
func DefaultConfig() *Config {
	return &Config{
		Regions: []RegionConfig{
			{Name: "bios", BusWidth: 32},
			{Name: "unused", BusWidth: 32},
			{Name: "ewram", BusWidth: 16, NonSequential: 2, Sequential: 2},
			{Name: "iwram", BusWidth: 32},
			{Name: "io", BusWidth: 32},
			{Name: "palette", BusWidth: 16},
			{Name: "vram", BusWidth: 16},
			{Name: "oam", BusWidth: 32},
			{Name: "rom0", BusWidth: 16, NonSequential: 4, Sequential: 2},
			{Name: "rom0", BusWidth: 16, NonSequential: 4, Sequential: 2},
			{Name: "rom1", BusWidth: 16, NonSequential: 4, Sequential: 4},
			{Name: "rom1", BusWidth: 16, NonSequential: 4, Sequential: 4},
			{Name: "rom2", BusWidth: 16, NonSequential: 4, Sequential: 8},
			{Name: "rom2", BusWidth: 16, NonSequential: 4, Sequential: 8},
			{Name: "sram", BusWidth: 8, NonSequential: 4, Sequential: 4},
			{Name: "sram", BusWidth: 8, NonSequential: 4, Sequential: 4},
		},
		Unmapped: RegionConfig{Name: "unmapped", BusWidth: 32},
	}
}

// LoadConfig loads a Config from a JSON file. Fields missing from the file
// keep their default values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read wait-state config file: %w", err)
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse wait-state config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid wait-state config: %w", err)
	}

	return config, nil
}

// SaveConfig writes a Config to a JSON file.
func (c *Config) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize wait-state config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write wait-state config file: %w", err)
	}

	return nil
}

// Validate checks the region count and bus widths.
func (c *Config) Validate() error {
	if len(c.Regions) != RegionCount {
		return fmt.Errorf("regions must have %d entries, got %d", RegionCount, len(c.Regions))
	}
	for i, r := range c.Regions {
		if err := r.validate(); err != nil {
			return fmt.Errorf("region 0x%X: %w", i, err)
		}
	}
	if err := c.Unmapped.validate(); err != nil {
		return fmt.Errorf("unmapped: %w", err)
	}
	return nil
}

func (r RegionConfig) validate() error {
	switch r.BusWidth {
	case 8, 16, 32:
		return nil
	}
	return fmt.Errorf("bus_width must be 8, 16 or 32, got %d", r.BusWidth)
}

// Clone returns a deep copy of the Config.
func (c *Config) Clone() *Config {
	return &Config{
		Regions:  append([]RegionConfig(nil), c.Regions...),
		Unmapped: c.Unmapped,
	}
}

var (
	romNonSequential = [4]uint32{4, 3, 2, 8}
	rom0Sequential   = [2]uint32{2, 1}
	rom1Sequential   = [2]uint32{4, 1}
	rom2Sequential   = [2]uint32{8, 1}
)

// ApplyWAITCNT updates the SRAM and Game Pak ROM regions from a value
// written to the WAITCNT I/O register.
func (c *Config) ApplyWAITCNT(v uint16) {
	set := func(first int, n, s uint32) {
		for i := first; i < first+2; i++ {
			c.Regions[i].NonSequential = n
			c.Regions[i].Sequential = s
		}
	}

	sram := romNonSequential[v&3]
	set(0xE, sram, sram)
	set(0x8, romNonSequential[(v>>2)&3], rom0Sequential[(v>>4)&1])
	set(0xA, romNonSequential[(v>>5)&3], rom1Sequential[(v>>7)&1])
	set(0xC, romNonSequential[(v>>8)&3], rom2Sequential[(v>>10)&1])
}
