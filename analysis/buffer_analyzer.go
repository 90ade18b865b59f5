package analysis

import (
	"log"

	"github.com/sarchlab/spiflash/hooking"
	"github.com/sarchlab/spiflash/timing"
)

// BufferAnalyzer records the time-weighted average level of a buffer.
type BufferAnalyzer struct {
	PerfLogger
	timing.TimeTeller

	buf       Buffer
	usePeriod bool
	period    timing.VTimeInCycle

	periodStart timing.VTimeInCycle
	lastTime    timing.VTimeInCycle
	level       int
	weighted    float64
	duration    timing.VTimeInCycle
}

// Func records a buffer level change.
func (b *BufferAnalyzer) Func(_ hooking.HookCtx) {
	b.advance(b.CurrentTime())
	b.level = b.buf.Size()
}

// advance accounts the current level up to now and reports every period that
// has ended on the way.
func (b *BufferAnalyzer) advance(now timing.VTimeInCycle) {
	for b.usePeriod && now >= b.periodStart+b.period {
		end := b.periodStart + b.period
		b.accumulate(end)
		b.report(b.periodStart, end)
		b.periodStart = end
	}

	b.accumulate(now)
}

func (b *BufferAnalyzer) accumulate(t timing.VTimeInCycle) {
	if t <= b.lastTime {
		return
	}

	b.weighted += float64(b.level) * float64(t-b.lastTime)
	b.duration += t - b.lastTime
	b.lastTime = t
}

func (b *BufferAnalyzer) report(start, end timing.VTimeInCycle) {
	weighted, duration := b.weighted, b.duration
	b.weighted, b.duration = 0, 0

	if duration == 0 || weighted == 0 {
		return
	}

	b.PerfLogger.AddDataEntry(PerfAnalyzerEntry{
		Start:     uint64(start),
		End:       uint64(end),
		Where:     b.buf.Name(),
		What:      "Level",
		EntryType: "Buffer",
		Value:     weighted / float64(duration),
	})
}

func (b *BufferAnalyzer) summarize() {
	now := b.CurrentTime()
	b.advance(now)
	b.report(b.periodStart, now)
}

// BufferAnalyzerBuilder can build a BufferAnalyzer.
type BufferAnalyzerBuilder struct {
	perfLogger PerfLogger
	timeTeller timing.TimeTeller
	usePeriod  bool
	period     timing.VTimeInCycle
	buffer     Buffer
}

// MakeBufferAnalyzerBuilder creates a BufferAnalyzerBuilder.
func MakeBufferAnalyzerBuilder() BufferAnalyzerBuilder {
	return BufferAnalyzerBuilder{}
}

// WithPerfLogger sets the logger to be used by the BufferAnalyzer.
func (b BufferAnalyzerBuilder) WithPerfLogger(
	l PerfLogger,
) BufferAnalyzerBuilder {
	b.perfLogger = l
	return b
}

// WithTimeTeller sets the TimeTeller to be used by the BufferAnalyzer.
func (b BufferAnalyzerBuilder) WithTimeTeller(
	t timing.TimeTeller,
) BufferAnalyzerBuilder {
	b.timeTeller = t
	return b
}

// WithPeriod sets the period to be used by the BufferAnalyzer.
func (b BufferAnalyzerBuilder) WithPeriod(
	p timing.VTimeInCycle,
) BufferAnalyzerBuilder {
	b.usePeriod = true
	b.period = p

	return b
}

// WithBuffer sets the buffer to be analyzed.
func (b BufferAnalyzerBuilder) WithBuffer(buf Buffer) BufferAnalyzerBuilder {
	b.buffer = buf
	return b
}

// Build creates a BufferAnalyzer.
func (b BufferAnalyzerBuilder) Build() *BufferAnalyzer {
	if b.perfLogger == nil {
		log.Panic("BufferAnalyzer requires a PerfLogger")
	}

	if b.timeTeller == nil {
		log.Panic("BufferAnalyzer requires a TimeTeller")
	}

	if b.buffer == nil {
		log.Panic("BufferAnalyzer requires a Buffer")
	}

	if b.usePeriod && b.period == 0 {
		log.Panic("BufferAnalyzer period must be positive")
	}

	now := b.timeTeller.CurrentTime()

	a := &BufferAnalyzer{
		PerfLogger: b.perfLogger,
		TimeTeller: b.timeTeller,
		buf:        b.buffer,
		usePeriod:  b.usePeriod,
		period:     b.period,
		lastTime:   now,
		level:      b.buffer.Size(),
	}

	if b.usePeriod {
		a.periodStart = now - now%b.period
	}

	return a
}
