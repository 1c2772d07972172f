// Package waitstate provides the per-region memory access timing of the
// handheld's bus.
//
// Each access costs one cycle plus the wait states of its region. Accesses
// wider than the region's bus are split, so a 32-bit non-sequential access to
// a 16-bit region costs N16 + S16 and a sequential one costs 2 * S16.
package waitstate

// widths indexes the precomputed tables by access size.
const (
	width8 = iota
	width16
	width32
	widthCount
)

// Table provides access cycle lookups.
type Table struct {
	config *Config
	cycles [RegionCount + 1][widthCount][2]int
}

// NewTable creates a new table with the power-on wait states.
func NewTable() *Table {
	return NewTableWithConfig(DefaultConfig())
}

// NewTableWithConfig creates a new table with a custom configuration. The
// configuration must be valid.
func NewTableWithConfig(config *Config) *Table {
	t := &Table{config: config}
	t.rebuild()
	return t
}

// Config returns the configuration the table was built from.
func (t *Table) Config() *Config {
	return t.config
}

// SetWAITCNT reconfigures the Game Pak regions from a WAITCNT value.
func (t *Table) SetWAITCNT(v uint16) {
	t.config.ApplyWAITCNT(v)
	t.rebuild()
}

func (t *Table) rebuild() {
	for i := 0; i < RegionCount && i < len(t.config.Regions); i++ {
		t.cycles[i] = regionCycles(t.config.Regions[i])
	}
	t.cycles[RegionCount] = regionCycles(t.config.Unmapped)
}

func regionCycles(r RegionConfig) [widthCount][2]int {
	n := 1 + int(r.NonSequential)
	s := 1 + int(r.Sequential)

	var out [widthCount][2]int
	for w, bytes := range [widthCount]uint32{1, 2, 4} {
		beats := 1
		if r.BusWidth != 8 && bytes*8 > r.BusWidth {
			beats = int(bytes * 8 / r.BusWidth)
		}
		out[w][0] = n + (beats-1)*s
		out[w][1] = beats * s
	}
	return out
}

// Cycles returns the cost of an access of width bytes at addr.
func (t *Table) Cycles(addr uint32, width uint32, sequential bool) int {
	region := int(addr >> 24)
	if region >= RegionCount {
		region = RegionCount
	}

	w := width8
	switch width {
	case 2:
		w = width16
	case 4:
		w = width32
	}

	seq := 0
	if sequential {
		seq = 1
	}

	return t.cycles[region][w][seq]
}
