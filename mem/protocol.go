// Package mem defines the memory access protocol spoken on component ports.
package mem

import (
	"github.com/sarchlab/spiflash/comm"
	"github.com/sarchlab/spiflash/idgen"
)

var accessReqByteOverhead = 12
var accessRspByteOverhead = 4

// AccessReq abstracts read and write requests.
type AccessReq interface {
	comm.Msg
	GetAddress() uint64
	GetByteSize() uint64
}

// A ReadReq asks the receiver to fetch data.
type ReadReq struct {
	comm.MsgMeta

	Address        uint64
	AccessByteSize uint64
	Info           any
}

// GetByteSize returns the number of bytes that the request is accessing.
func (r *ReadReq) GetByteSize() uint64 {
	return r.AccessByteSize
}

// GetAddress returns the address that the request is accessing.
func (r *ReadReq) GetAddress() uint64 {
	return r.Address
}

// ReadReqBuilder can build read requests.
type ReadReqBuilder struct {
	src, dst          comm.RemotePort
	address, byteSize uint64
	info              any
}

// WithSrc sets the source of the request to build.
func (b ReadReqBuilder) WithSrc(src comm.RemotePort) ReadReqBuilder {
	b.src = src
	return b
}

// WithDst sets the destination of the request to build.
func (b ReadReqBuilder) WithDst(dst comm.RemotePort) ReadReqBuilder {
	b.dst = dst
	return b
}

// WithAddress sets the address of the request to build.
func (b ReadReqBuilder) WithAddress(address uint64) ReadReqBuilder {
	b.address = address
	return b
}

// WithByteSize sets the byte size of the request to build.
func (b ReadReqBuilder) WithByteSize(byteSize uint64) ReadReqBuilder {
	b.byteSize = byteSize
	return b
}

// WithInfo attaches arbitrary information to the request.
func (b ReadReqBuilder) WithInfo(info any) ReadReqBuilder {
	b.info = info
	return b
}

// Build creates a new ReadReq.
func (b ReadReqBuilder) Build() *ReadReq {
	r := &ReadReq{}
	r.MsgID = idgen.Get().Generate()
	r.SrcPort = b.src
	r.DstPort = b.dst
	r.Bytes = accessReqByteOverhead
	r.Address = b.address
	r.AccessByteSize = b.byteSize
	r.Info = b.info

	return r
}

// A WriteReq asks the receiver to store data.
type WriteReq struct {
	comm.MsgMeta

	Address uint64
	Data    []byte
}

// GetByteSize returns the number of bytes that the request is writing.
func (r *WriteReq) GetByteSize() uint64 {
	return uint64(len(r.Data))
}

// GetAddress returns the address that the request is accessing.
func (r *WriteReq) GetAddress() uint64 {
	return r.Address
}

// WriteReqBuilder can build write requests.
type WriteReqBuilder struct {
	src, dst comm.RemotePort
	address  uint64
	data     []byte
}

// WithSrc sets the source of the request to build.
func (b WriteReqBuilder) WithSrc(src comm.RemotePort) WriteReqBuilder {
	b.src = src
	return b
}

// WithDst sets the destination of the request to build.
func (b WriteReqBuilder) WithDst(dst comm.RemotePort) WriteReqBuilder {
	b.dst = dst
	return b
}

// WithAddress sets the address of the request to build.
func (b WriteReqBuilder) WithAddress(address uint64) WriteReqBuilder {
	b.address = address
	return b
}

// WithData sets the data of the request to build.
func (b WriteReqBuilder) WithData(data []byte) WriteReqBuilder {
	b.data = data
	return b
}

// Build creates a new WriteReq.
func (b WriteReqBuilder) Build() *WriteReq {
	r := &WriteReq{}
	r.MsgID = idgen.Get().Generate()
	r.SrcPort = b.src
	r.DstPort = b.dst
	r.Address = b.address
	r.Data = b.data
	r.Bytes = len(b.data) + accessReqByteOverhead

	return r
}

// A DataReadyRsp carries the data loaded for a ReadReq.
type DataReadyRsp struct {
	comm.MsgMeta

	RespondTo string
	Data      []byte
}

// RspTo returns the ID of the request that the response answers.
func (r *DataReadyRsp) RspTo() string {
	return r.RespondTo
}

// DataReadyRspBuilder can build data ready responses.
type DataReadyRspBuilder struct {
	src, dst comm.RemotePort
	rspTo    string
	data     []byte
}

// WithSrc sets the source of the response to build.
func (b DataReadyRspBuilder) WithSrc(src comm.RemotePort) DataReadyRspBuilder {
	b.src = src
	return b
}

// WithDst sets the destination of the response to build.
func (b DataReadyRspBuilder) WithDst(dst comm.RemotePort) DataReadyRspBuilder {
	b.dst = dst
	return b
}

// WithRspTo sets the ID of the request being answered.
func (b DataReadyRspBuilder) WithRspTo(id string) DataReadyRspBuilder {
	b.rspTo = id
	return b
}

// WithData sets the data of the response to build.
func (b DataReadyRspBuilder) WithData(data []byte) DataReadyRspBuilder {
	b.data = data
	return b
}

// Build creates a new DataReadyRsp.
func (b DataReadyRspBuilder) Build() *DataReadyRsp {
	r := &DataReadyRsp{}
	r.MsgID = idgen.Get().Generate()
	r.SrcPort = b.src
	r.DstPort = b.dst
	r.Bytes = len(b.data) + accessRspByteOverhead
	r.RespondTo = b.rspTo
	r.Data = b.data

	return r
}

// An ErrorRsp reports that a request could not be served.
type ErrorRsp struct {
	comm.MsgMeta

	RespondTo string
	Reason    string
}

// RspTo returns the ID of the request that the response answers.
func (r *ErrorRsp) RspTo() string {
	return r.RespondTo
}

// ErrorRspBuilder can build error responses.
type ErrorRspBuilder struct {
	src, dst comm.RemotePort
	rspTo    string
	reason   string
}

// WithSrc sets the source of the response to build.
func (b ErrorRspBuilder) WithSrc(src comm.RemotePort) ErrorRspBuilder {
	b.src = src
	return b
}

// WithDst sets the destination of the response to build.
func (b ErrorRspBuilder) WithDst(dst comm.RemotePort) ErrorRspBuilder {
	b.dst = dst
	return b
}

// WithRspTo sets the ID of the request being answered.
func (b ErrorRspBuilder) WithRspTo(id string) ErrorRspBuilder {
	b.rspTo = id
	return b
}

// WithReason sets a human readable reason.
func (b ErrorRspBuilder) WithReason(reason string) ErrorRspBuilder {
	b.reason = reason
	return b
}

// Build creates a new ErrorRsp.
func (b ErrorRspBuilder) Build() *ErrorRsp {
	r := &ErrorRsp{}
	r.MsgID = idgen.Get().Generate()
	r.SrcPort = b.src
	r.DstPort = b.dst
	r.Bytes = accessRspByteOverhead
	r.RespondTo = b.rspTo
	r.Reason = b.reason

	return r
}
