// Package comm defines how components exchange messages through ports and
// connections.
package comm

// RemotePort identifies a port in the simulation topology.
type RemotePort string

// Msg describes the metadata contract shared by all messages.
type Msg interface {
	ID() string
	Src() RemotePort
	Dst() RemotePort
	TrafficClass() string
	TrafficBytes() int
}

// Rsp is a message that completes a request.
type Rsp interface {
	Msg
	RspTo() string
}

// MsgMeta carries the fields common to every message. Message types embed it
// to satisfy Msg.
type MsgMeta struct {
	MsgID          string     `json:"id"`
	SrcPort        RemotePort `json:"src"`
	DstPort        RemotePort `json:"dst"`
	TrafficClassID string     `json:"traffic_class,omitempty"`
	Bytes          int        `json:"traffic_bytes,omitempty"`
}

// ID implements Msg.
func (m MsgMeta) ID() string {
	return m.MsgID
}

// Src implements Msg.
func (m MsgMeta) Src() RemotePort {
	return m.SrcPort
}

// Dst implements Msg.
func (m MsgMeta) Dst() RemotePort {
	return m.DstPort
}

// TrafficClass implements Msg.
func (m MsgMeta) TrafficClass() string {
	return m.TrafficClassID
}

// TrafficBytes implements Msg.
func (m MsgMeta) TrafficBytes() int {
	return m.Bytes
}
