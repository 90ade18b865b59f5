// Package analysis records time-bucketed port traffic and buffer levels of a
// running simulation into a data recorder.
package analysis

import (
	"log"

	"github.com/sarchlab/spiflash/comm"
	"github.com/sarchlab/spiflash/datarecording"
	"github.com/sarchlab/spiflash/hooking"
	"github.com/sarchlab/spiflash/timing"
)

// PerfTable is the table performance entries are written to.
const PerfTable = "perf"

// PerfAnalyzerEntry is a single entry in the performance database. Start and
// End are in cycles.
type PerfAnalyzerEntry struct {
	Start       uint64
	End         uint64
	Where       string
	WhereRemote string
	What        string
	EntryType   string
	Value       float64
	Unit        string
}

// PerfLogger is the interface that provide the service that can record
// performance data entries.
type PerfLogger interface {
	AddDataEntry(entry PerfAnalyzerEntry)
}

// Buffer is a hookable queue whose fill level can be observed.
type Buffer interface {
	hooking.Hookable
	Name() string
	Size() int
	Capacity() int
}

// PortOwner is a component whose ports can be listed.
type PortOwner interface {
	Ports() []comm.Port
}

type summarizer interface {
	summarize()
}

// PerfAnalyzer attaches analyzers to ports and buffers and forwards their
// entries to a data recorder.
type PerfAnalyzer struct {
	usePeriod  bool
	period     timing.VTimeInCycle
	timeTeller timing.TimeTeller
	backend    datarecording.DataRecorder

	analyzers []summarizer
}

// RegisterComponent registers every port of a component.
func (p *PerfAnalyzer) RegisterComponent(c PortOwner) {
	for _, port := range c.Ports() {
		p.RegisterPort(port)
	}
}

// RegisterPort registers a port to be monitored.
func (p *PerfAnalyzer) RegisterPort(port comm.Port) {
	b := MakePortAnalyzerBuilder().
		WithTimeTeller(p.timeTeller).
		WithPerfLogger(p).
		WithPort(port)

	if p.usePeriod {
		b = b.WithPeriod(p.period)
	}

	a := b.Build()
	port.AcceptHook(a)
	p.analyzers = append(p.analyzers, a)
}

// RegisterBuffer registers a buffer to be monitored.
func (p *PerfAnalyzer) RegisterBuffer(buf Buffer) {
	b := MakeBufferAnalyzerBuilder().
		WithTimeTeller(p.timeTeller).
		WithPerfLogger(p).
		WithBuffer(buf)

	if p.usePeriod {
		b = b.WithPeriod(p.period)
	}

	a := b.Build()
	buf.AcceptHook(a)
	p.analyzers = append(p.analyzers, a)
}

// AddDataEntry writes an entry to the backend.
func (p *PerfAnalyzer) AddDataEntry(entry PerfAnalyzerEntry) {
	p.backend.InsertData(PerfTable, entry)
}

// Summarize closes the current period of every analyzer and flushes the
// backend. Call it once the engine has stopped.
func (p *PerfAnalyzer) Summarize() {
	for _, a := range p.analyzers {
		a.summarize()
	}

	p.backend.Flush()
}

// PerfAnalyzerBuilder is a builder that can build a PerfAnalyzer.
type PerfAnalyzerBuilder struct {
	usePeriod  bool
	period     timing.VTimeInCycle
	timeTeller timing.TimeTeller
	backend    datarecording.DataRecorder
}

// MakePerfAnalyzerBuilder creates a new PerfAnalyzerBuilder.
func MakePerfAnalyzerBuilder() PerfAnalyzerBuilder {
	return PerfAnalyzerBuilder{}
}

// WithPeriod splits the records into buckets of period cycles.
func (b PerfAnalyzerBuilder) WithPeriod(
	period timing.VTimeInCycle,
) PerfAnalyzerBuilder {
	b.usePeriod = true
	b.period = period

	return b
}

// WithTimeTeller sets the clock the analyzers read.
func (b PerfAnalyzerBuilder) WithTimeTeller(
	t timing.TimeTeller,
) PerfAnalyzerBuilder {
	b.timeTeller = t
	return b
}

// WithRecorder sets the backend entries are written to.
func (b PerfAnalyzerBuilder) WithRecorder(
	r datarecording.DataRecorder,
) PerfAnalyzerBuilder {
	b.backend = r
	return b
}

// Build creates a PerfAnalyzer and its table.
func (b PerfAnalyzerBuilder) Build() *PerfAnalyzer {
	if b.timeTeller == nil {
		log.Panic("PerfAnalyzer requires a TimeTeller")
	}

	if b.backend == nil {
		log.Panic("PerfAnalyzer requires a DataRecorder")
	}

	if b.usePeriod && b.period == 0 {
		log.Panic("PerfAnalyzer period must be positive")
	}

	b.backend.CreateTable(PerfTable, PerfAnalyzerEntry{})

	return &PerfAnalyzer{
		usePeriod:  b.usePeriod,
		period:     b.period,
		timeTeller: b.timeTeller,
		backend:    b.backend,
	}
}
