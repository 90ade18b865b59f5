package agent

import (
	"log"
	"math/rand"

	"github.com/sarchlab/spiflash/comm"
	"github.com/sarchlab/spiflash/spi/flash"
	"github.com/sarchlab/spiflash/timing"
)

// Builder can build agents.
type Builder struct {
	engine      timing.Engine
	freq        timing.FreqInHz
	pattern     Pattern
	accessSize  uint64
	stride      uint64
	start       uint64
	maxAddress  uint64
	maxInflight int
	readLeft    int
	seed        int64
	golden      flash.Image
	lowModule   comm.Port
}

// MakeBuilder returns a builder for a sequential agent issuing 1000 word
// reads.
func MakeBuilder() Builder {
	return Builder{
		freq:        100 * timing.MHz,
		pattern:     Sequential,
		accessSize:  4,
		stride:      64,
		maxInflight: 1,
		readLeft:    1000,
		seed:        1,
	}
}

// WithEngine sets the event engine.
func (b Builder) WithEngine(engine timing.Engine) Builder {
	b.engine = engine
	return b
}

// WithFreq sets the clock of the agent.
func (b Builder) WithFreq(freq timing.FreqInHz) Builder {
	b.freq = freq
	return b
}

// WithPattern sets the access pattern.
func (b Builder) WithPattern(p Pattern) Builder {
	b.pattern = p
	return b
}

// WithAccessSize sets the number of bytes per read.
func (b Builder) WithAccessSize(n uint64) Builder {
	b.accessSize = n
	return b
}

// WithStride sets the address increment of the strided pattern.
func (b Builder) WithStride(n uint64) Builder {
	b.stride = n
	return b
}

// WithStartAddress sets the first address read.
func (b Builder) WithStartAddress(addr uint64) Builder {
	b.start = addr
	return b
}

// WithMaxAddress bounds the address range. It defaults to the golden image
// size.
func (b Builder) WithMaxAddress(addr uint64) Builder {
	b.maxAddress = addr
	return b
}

// WithMaxInflight sets how many reads may wait for a response at once.
func (b Builder) WithMaxInflight(n int) Builder {
	b.maxInflight = n
	return b
}

// WithReadLeft sets the number of reads to issue.
func (b Builder) WithReadLeft(n int) Builder {
	b.readLeft = n
	return b
}

// WithSeed seeds the random pattern.
func (b Builder) WithSeed(seed int64) Builder {
	b.seed = seed
	return b
}

// WithGolden sets the image read data is checked against.
func (b Builder) WithGolden(img flash.Image) Builder {
	b.golden = img
	return b
}

// WithLowModule sets the port the reads are sent to.
func (b Builder) WithLowModule(port comm.Port) Builder {
	b.lowModule = port
	return b
}

// Build creates an agent. The Mem port is created but not connected.
func (b Builder) Build(name string) *Agent {
	if b.engine == nil {
		log.Panicf("agent: %s: engine is not set", name)
	}

	if b.golden == nil {
		log.Panicf("agent: %s: golden image is not set", name)
	}

	maxAddress := b.maxAddress
	if maxAddress == 0 {
		maxAddress = uint64(len(b.golden))
	}

	if b.accessSize == 0 || b.accessSize > maxAddress {
		log.Panicf("agent: %s: access size %d does not fit in 0x%X",
			name, b.accessSize, maxAddress)
	}

	if b.maxInflight < 1 {
		log.Panicf("agent: %s: max inflight must be positive", name)
	}

	a := &Agent{
		LowModule:   b.lowModule,
		pattern:     b.pattern,
		accessSize:  b.accessSize,
		stride:      b.stride,
		start:       b.start,
		maxAddress:  maxAddress,
		maxInflight: b.maxInflight,
		readLeft:    b.readLeft,
		golden:      b.golden,
		rng:         rand.New(rand.NewSource(b.seed)),
		nextAddr:    b.start % maxAddress,
		pending:     make(map[string]pendingRead),
	}

	if a.pattern == Random {
		a.advance()
	}

	a.TickingComponent = timing.NewTickingComponent(
		name, b.engine, timing.HostDomain(b.freq), a)

	a.memPort = comm.NewPort(a, b.maxInflight, b.maxInflight, name+".Mem")
	a.AddPort("Mem", a.memPort)

	return a
}
