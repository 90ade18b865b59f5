// Package wishbone models one cycle of a Wishbone classic bus interface.
package wishbone

// CycleType is the registered-feedback cycle type identifier (CTI).
type CycleType uint8

// Cycle types.
const (
	CTIClassic      CycleType = 0b000
	CTIConstAddress CycleType = 0b001
	CTIIncrement    CycleType = 0b010
	CTIEndOfBurst   CycleType = 0b111
)

// BurstType is the burst type extension (BTE).
type BurstType uint8

// Burst types.
const (
	BTELinear BurstType = 0b00
	BTEWrap4  BurstType = 0b01
	BTEWrap8  BurstType = 0b10
	BTEWrap16 BurstType = 0b11
)

// Request holds the master-driven signals for one bus cycle. Adr is a word
// address. Sel, CTI and BTE are carried for bus compatibility; the flash
// bridge accepts and ignores them, so bursts are tracked by address alone.
type Request struct {
	Cyc  bool
	Stb  bool
	We   bool
	Adr  uint32
	DatW uint32
	Sel  uint8
	CTI  CycleType
	BTE  BurstType
}

// Active tells if the master is requesting a transfer in this cycle.
func (r Request) Active() bool {
	return r.Cyc && r.Stb
}

// Response holds the slave-driven signals for one bus cycle.
type Response struct {
	Ack  bool
	Err  bool
	DatR uint32
}

// Done tells if the cycle terminates the current transfer.
func (r Response) Done() bool {
	return r.Ack || r.Err
}

// ReadRequest builds a single-word read of word address adr.
func ReadRequest(adr uint32) Request {
	return Request{Cyc: true, Stb: true, Adr: adr, Sel: 0xF}
}

// WriteRequest builds a single-word write of data to word address adr.
func WriteRequest(adr, data uint32) Request {
	return Request{Cyc: true, Stb: true, We: true, Adr: adr, DatW: data,
		Sel: 0xF}
}
