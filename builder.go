package spiflash

import (
	"log"

	"github.com/sarchlab/spiflash/comm"
	"github.com/sarchlab/spiflash/spi"
	"github.com/sarchlab/spiflash/spi/flash"
	"github.com/sarchlab/spiflash/spi/mmap"
	"github.com/sarchlab/spiflash/timing"
)

// Builder constructs a Comp either from a Spec or per-field setters.
type Builder struct {
	spec   Spec
	engine timing.Engine
	image  flash.Image
}

// MakeBuilder returns a new Builder with the default Spec.
func MakeBuilder() Builder {
	return Builder{spec: DefaultSpec()}
}

// WithEngine sets the event engine.
func (b Builder) WithEngine(engine timing.Engine) Builder {
	b.engine = engine
	return b
}

// WithSpec replaces the whole spec.
func (b Builder) WithSpec(spec Spec) Builder {
	b.spec = spec
	return b
}

// WithFreq sets the host clock.
func (b Builder) WithFreq(freq timing.FreqInHz) Builder {
	b.spec.Freq = freq
	return b
}

// WithWidth sets the transfer width after the command.
func (b Builder) WithWidth(w spi.Width) Builder {
	b.spec.Width = w
	return b
}

// WithDivisor sets the serial clock divisor.
func (b Builder) WithDivisor(d uint32) Builder {
	b.spec.Divisor = d
	return b
}

// WithDummyBits sets the dummy phase length.
func (b Builder) WithDummyBits(n uint8) Builder {
	b.spec.DummyBits = n
	return b
}

// WithHoldTimeout sets the number of idle cycles a burst stays open.
func (b Builder) WithHoldTimeout(n uint32) Builder {
	b.spec.HoldTimeout = n
	return b
}

// WithByteOrder sets the order of bytes in the bus word.
func (b Builder) WithByteOrder(o mmap.ByteOrder) Builder {
	b.spec.ByteOrder = o
	return b
}

// WithTopBufSize sets the buffer size of the Top port.
func (b Builder) WithTopBufSize(n int) Builder {
	b.spec.TopBufSize = n
	return b
}

// WithImage sets the flash content. Its length becomes the mapped size.
func (b Builder) WithImage(image flash.Image) Builder {
	b.image = image
	b.spec.SizeBytes = len(image)

	return b
}

// Build constructs the component. Ports are created but not connected. It
// panics on an invalid configuration.
func (b Builder) Build(name string) *Comp {
	if b.engine == nil {
		log.Panicf("spiflash: %s: engine is not set", name)
	}

	image := b.image
	if image == nil {
		var err error

		image, err = flash.NewImage(b.spec.SizeBytes)
		if err != nil {
			log.Panicf("spiflash: %s: %v", name, err)
		}
	}

	bridge, err := NewBridge(b.spec, image)
	if err != nil {
		log.Panicf("spiflash: %s: %v", name, err)
	}

	c := &Comp{Spec: b.spec, bridge: bridge}
	c.TickingComponent = timing.NewTickingComponent(
		name, b.engine, timing.HostDomain(b.spec.Freq), c)

	mw := &bridgeMiddleware{Comp: c}
	c.AddMiddleware(mw)
	bridge.Reader().AcceptHook(mw)

	c.IO.Top = comm.NewPort(c, b.spec.TopBufSize, b.spec.TopBufSize,
		name+".Top")
	c.AddPort("Top", c.IO.Top)

	return c
}
