package analysis

import (
	"log"
	"sort"

	"github.com/sarchlab/spiflash/comm"
	"github.com/sarchlab/spiflash/hooking"
	"github.com/sarchlab/spiflash/timing"
)

type portAnalyzerEntry struct {
	remotePort     comm.RemotePort
	OutTrafficByte int64
	OutTrafficMsg  int64
	InTrafficByte  int64
	InTrafficMsg   int64
}

// PortAnalyzer is a hook for the amount of traffic that passes through a Port.
type PortAnalyzer struct {
	PerfLogger
	timing.TimeTeller

	usePeriod bool
	period    timing.VTimeInCycle
	port      comm.Port

	periodStart        timing.VTimeInCycle
	remoteToTrafficMap map[comm.RemotePort]portAnalyzerEntry
}

// Func counts a message when it is sent or delivered.
func (h *PortAnalyzer) Func(ctx hooking.HookCtx) {
	incoming := ctx.Pos == comm.HookPosPortMsgRecvd
	if !incoming && ctx.Pos != comm.HookPosPortMsgSend {
		return
	}

	msg, ok := ctx.Item.(comm.Msg)
	if !ok {
		return
	}

	now := h.CurrentTime()
	if h.usePeriod && now >= h.periodStart+h.period {
		h.summarize()
		h.periodStart = now - now%h.period
	}

	remote := msg.Dst()
	if incoming {
		remote = msg.Src()
	}

	entry := h.remoteToTrafficMap[remote]
	entry.remotePort = remote

	if incoming {
		entry.InTrafficByte += int64(msg.TrafficBytes())
		entry.InTrafficMsg++
	} else {
		entry.OutTrafficByte += int64(msg.TrafficBytes())
		entry.OutTrafficMsg++
	}

	h.remoteToTrafficMap[remote] = entry
}

func (h *PortAnalyzer) summarize() {
	if len(h.remoteToTrafficMap) == 0 {
		return
	}

	startTime := h.periodStart
	endTime := h.CurrentTime()

	if h.usePeriod && h.periodStart+h.period < endTime {
		endTime = h.periodStart + h.period
	}

	remotes := make([]comm.RemotePort, 0, len(h.remoteToTrafficMap))
	for r := range h.remoteToTrafficMap {
		remotes = append(remotes, r)
	}

	sort.Slice(remotes, func(i, j int) bool { return remotes[i] < remotes[j] })

	for _, r := range remotes {
		entry := h.remoteToTrafficMap[r]
		perfEntry := PerfAnalyzerEntry{
			Start:       uint64(startTime),
			End:         uint64(endTime),
			Where:       h.port.Name(),
			WhereRemote: string(entry.remotePort),
			EntryType:   "Traffic",
		}

		if entry.InTrafficMsg != 0 {
			h.addPair(perfEntry, "Incoming",
				entry.InTrafficByte, entry.InTrafficMsg)
		}

		if entry.OutTrafficMsg != 0 {
			h.addPair(perfEntry, "Outgoing",
				entry.OutTrafficByte, entry.OutTrafficMsg)
		}
	}

	h.remoteToTrafficMap = make(map[comm.RemotePort]portAnalyzerEntry)
}

func (h *PortAnalyzer) addPair(
	e PerfAnalyzerEntry,
	what string,
	bytes, msgs int64,
) {
	e.What = what

	e.Value = float64(bytes)
	e.Unit = "Byte"
	h.PerfLogger.AddDataEntry(e)

	e.Value = float64(msgs)
	e.Unit = "Msg"
	h.PerfLogger.AddDataEntry(e)
}

// PortAnalyzerBuilder can build a PortAnalyzer.
type PortAnalyzerBuilder struct {
	perfLogger PerfLogger
	timeTeller timing.TimeTeller
	usePeriod  bool
	period     timing.VTimeInCycle
	port       comm.Port
}

// MakePortAnalyzerBuilder creates a PortAnalyzerBuilder.
func MakePortAnalyzerBuilder() PortAnalyzerBuilder {
	return PortAnalyzerBuilder{}
}

// WithPerfLogger sets the logger to be used by the PortAnalyzer.
func (b PortAnalyzerBuilder) WithPerfLogger(l PerfLogger) PortAnalyzerBuilder {
	b.perfLogger = l
	return b
}

// WithTimeTeller sets the TimeTeller to be used by the PortAnalyzer.
func (b PortAnalyzerBuilder) WithTimeTeller(
	t timing.TimeTeller,
) PortAnalyzerBuilder {
	b.timeTeller = t
	return b
}

// WithPeriod sets the period to be used by the PortAnalyzer.
func (b PortAnalyzerBuilder) WithPeriod(
	p timing.VTimeInCycle,
) PortAnalyzerBuilder {
	b.usePeriod = true
	b.period = p

	return b
}

// WithPort sets the port to be used by the PortAnalyzer.
func (b PortAnalyzerBuilder) WithPort(p comm.Port) PortAnalyzerBuilder {
	b.port = p
	return b
}

// Build creates a PortAnalyzer.
func (b PortAnalyzerBuilder) Build() *PortAnalyzer {
	if b.perfLogger == nil {
		log.Panic("PortAnalyzer requires a PerfLogger")
	}

	if b.timeTeller == nil {
		log.Panic("PortAnalyzer requires a TimeTeller")
	}

	if b.port == nil {
		log.Panic("PortAnalyzer requires a Port")
	}

	if b.usePeriod && b.period == 0 {
		log.Panic("PortAnalyzer period must be positive")
	}

	return &PortAnalyzer{
		PerfLogger:         b.perfLogger,
		TimeTeller:         b.timeTeller,
		usePeriod:          b.usePeriod,
		period:             b.period,
		port:               b.port,
		remoteToTrafficMap: make(map[comm.RemotePort]portAnalyzerEntry),
	}
}
