// SPDX-License-Identifier: BSD-3-Clause

// Package wireproto implements the fixed-size on-host agent wire frame
// (§6): a stable header-string-prefixed binary message carried as a single
// UDP datagram per physical network. It is deliberately NOT the NATS/JSON
// transport pkg/ipc uses for peer-service coordination — the wire requires a
// fixed-size binary frame, and this package is that codec.
package wireproto

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

const (
	// HeaderStringLen is the fixed width of the message-class header string.
	HeaderStringLen = 18
	// FreeHeaderLen is the fixed width of the free-form header field.
	FreeHeaderLen = 74
	// ParmCount is the number of uint32 parameter words.
	ParmCount = 5
	// BufLen is the fixed width of the trailing data buffer.
	BufLen = 896
	// FrameLen is the total wire size of one frame.
	FrameLen = HeaderStringLen + FreeHeaderLen + 4 + 4 + 4 + 4 + (ParmCount * 4) + BufLen
)

// Message-class header-string prefixes (§6: "Message classes carry a stable
// header-string prefix literal").
const (
	ClassCommandRequest  = "mtce cmd req"
	ClassCommandResponse = "mtce cmd rsp"
	ClassWorkerMessage    = "mtce wrk msg"
	ClassMtcAlive         = "mtce alive"
	ClassLog              = "mtce log"
	ClassHeartbeatEvent   = "mtce hbs evt"
)

// Command codes, fixed small integers per §6.
type Cmd uint32

const (
	CmdReboot Cmd = iota + 1
	CmdWipedisk
	CmdReset
	CmdMtcAliveReq
	CmdMtcAliveMsg
	CmdLocked
	CmdUnlocked
	CmdMainGoEnabledReq
	CmdMainGoEnabledMsg
	CmdMainGoEnabledFailed
	CmdSubfGoEnabledReq
	CmdSubfGoEnabledMsg
	CmdSubfGoEnabledFailed
	CmdStartServicesController
	CmdStartServicesWorker
	CmdStartServicesStorage
	CmdStopServicesController
	CmdStopServicesWorker
	CmdStopServicesStorage
	CmdLazyReboot
	CmdHostServicesResult
	CmdInfo
)

// Event codes, carried in the Num field of a worker-message frame.
type Event uint32

const (
	EventHeartbeatLoss Event = iota + 1
	EventHeartbeatMinorSet
	EventHeartbeatMinorClear
	EventHeartbeatDegradeSet
	EventHeartbeatDegradeClear
	EventPmond
	EventRmond
	EventAvs
	EventHwmon
	EventHostStalled
)

// RevisionJSONBuf signals that Buf carries a self-describing JSON document
// instead of the legacy fixed-field layout.
const RevisionJSONBuf = 1

// Frame is the decoded form of one on-host agent wire message.
type Frame struct {
	HeaderString string            // message class, e.g. ClassMtcAlive
	FreeHeader   string            // free-form header text
	Version      uint32
	Revision     uint32            // RevisionJSONBuf signals JSON-in-Buf
	Cmd          Cmd
	Num          uint32            // event code, or echoed cmd for responses
	Parm         [ParmCount]uint32
	Buf          []byte            // JSON document when Revision == RevisionJSONBuf
}

// NewRequest builds a command-request frame with the given command and
// parameters, using the current wire version and the JSON-buf revision.
func NewRequest(cmd Cmd, freeHeader string, parm [ParmCount]uint32, jsonBuf []byte) Frame {
	return Frame{
		HeaderString: ClassCommandRequest,
		FreeHeader:   freeHeader,
		Version:      1,
		Revision:     RevisionJSONBuf,
		Cmd:          cmd,
		Parm:         parm,
		Buf:          jsonBuf,
	}
}

// NewResponse builds a command-response frame acknowledging cmd.
func NewResponse(cmd Cmd, status uint32, statusString string) Frame {
	var buf []byte
	if statusString != "" {
		buf = []byte(statusString)
	}
	return Frame{
		HeaderString: ClassCommandResponse,
		Version:      1,
		Revision:     RevisionJSONBuf,
		Cmd:          cmd,
		Num:          status,
		Buf:          buf,
	}
}

// Encode serializes f into a FrameLen-byte buffer. Every unused byte of the
// fixed header-string/free-header/buf fields is sent as zero.
func Encode(f Frame) ([]byte, error) {
	if len(f.HeaderString) > HeaderStringLen {
		return nil, fmt.Errorf("wireproto: header string %q exceeds %d bytes", f.HeaderString, HeaderStringLen)
	}
	if len(f.FreeHeader) > FreeHeaderLen {
		return nil, fmt.Errorf("wireproto: free header exceeds %d bytes", FreeHeaderLen)
	}
	if len(f.Buf) > BufLen {
		return nil, fmt.Errorf("wireproto: data buffer exceeds %d bytes", BufLen)
	}

	out := make([]byte, FrameLen)
	off := 0

	copy(out[off:off+HeaderStringLen], f.HeaderString)
	off += HeaderStringLen

	copy(out[off:off+FreeHeaderLen], f.FreeHeader)
	off += FreeHeaderLen

	binary.BigEndian.PutUint32(out[off:], f.Version)
	off += 4
	binary.BigEndian.PutUint32(out[off:], f.Revision)
	off += 4
	binary.BigEndian.PutUint32(out[off:], uint32(f.Cmd))
	off += 4
	binary.BigEndian.PutUint32(out[off:], f.Num)
	off += 4

	for i := 0; i < ParmCount; i++ {
		binary.BigEndian.PutUint32(out[off:], f.Parm[i])
		off += 4
	}

	copy(out[off:off+BufLen], f.Buf)

	return out, nil
}

// Decode parses a FrameLen-byte wire buffer into a Frame.
func Decode(raw []byte) (Frame, error) {
	if len(raw) != FrameLen {
		return Frame{}, fmt.Errorf("wireproto: expected %d bytes, got %d", FrameLen, len(raw))
	}

	var f Frame
	off := 0

	f.HeaderString = string(bytes.TrimRight(raw[off:off+HeaderStringLen], "\x00"))
	off += HeaderStringLen

	f.FreeHeader = string(bytes.TrimRight(raw[off:off+FreeHeaderLen], "\x00"))
	off += FreeHeaderLen

	f.Version = binary.BigEndian.Uint32(raw[off:])
	off += 4
	f.Revision = binary.BigEndian.Uint32(raw[off:])
	off += 4
	f.Cmd = Cmd(binary.BigEndian.Uint32(raw[off:]))
	off += 4
	f.Num = binary.BigEndian.Uint32(raw[off:])
	off += 4

	for i := 0; i < ParmCount; i++ {
		f.Parm[i] = binary.BigEndian.Uint32(raw[off:])
		off += 4
	}

	bufBytes := bytes.TrimRight(raw[off:off+BufLen], "\x00")
	f.Buf = append([]byte(nil), bufBytes...)

	return f, nil
}

// IsJSON reports whether Buf should be interpreted as a JSON document.
func (f Frame) IsJSON() bool {
	return f.Revision == RevisionJSONBuf
}
