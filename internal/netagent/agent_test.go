// SPDX-License-Identifier: BSD-3-Clause

package netagent

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mtce-project/mtce-agent/pkg/wireproto"
)

type recordingHandler struct {
	mtcAlive  []wireproto.MtcAlivePayload
	workerMsg int
	unmatched int
}

func (r *recordingHandler) HandleMtcAlive(network Network, remoteAddr string, payload wireproto.MtcAlivePayload) {
	r.mtcAlive = append(r.mtcAlive, payload)
}

func (r *recordingHandler) HandleWorkerMessage(network Network, remoteAddr string, frame wireproto.Frame) {
	r.workerMsg++
}

func (r *recordingHandler) HandleUnmatchedResponse(network Network, remoteAddr string, frame wireproto.Frame) {
	r.unmatched++
}

func pickFreeUDPAddr(t *testing.T) string {
	t.Helper()
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := conn.LocalAddr().String()
	require.NoError(t, conn.Close())
	return addr
}

func TestSendWithAckReceivesMatchingResponse(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serverAddr := pickFreeUDPAddr(t)
	clientAddr := pickFreeUDPAddr(t)

	server := New(nil, &recordingHandler{})
	require.NoError(t, server.Listen(ctx, Management, serverAddr))
	defer server.Close()

	client := New(nil, &recordingHandler{})
	require.NoError(t, client.Listen(ctx, Management, clientAddr))
	defer client.Close()

	// Drive the "server" side manually: read the request and reply with a
	// matching command-response frame from the client's address.
	go func() {
		raw := make([]byte, wireproto.FrameLen)
		conn := server.conns[Management]
		n, remote, err := conn.ReadFrom(raw)
		if err != nil {
			return
		}
		req, err := wireproto.Decode(raw[:n])
		if err != nil {
			return
		}
		rsp, _ := wireproto.Encode(wireproto.NewResponse(req.Cmd, 0, "ok"))
		conn.WriteTo(rsp, remote)
	}()

	rspCtx, rspCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer rspCancel()

	frame, err := client.SendWithAck(rspCtx, Management, serverAddr, wireproto.NewRequest(wireproto.CmdReboot, "", [wireproto.ParmCount]uint32{}, nil))
	require.NoError(t, err)
	assert.Equal(t, wireproto.CmdReboot, frame.Cmd)
	assert.Equal(t, "ok", string(frame.Buf))
}

func TestSendWithAckTimesOutWithNoResponse(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serverAddr := pickFreeUDPAddr(t)

	server := New(nil, &recordingHandler{})
	require.NoError(t, server.Listen(ctx, Management, serverAddr))
	defer server.Close()

	clientAddr := pickFreeUDPAddr(t)
	client := New(nil, &recordingHandler{})
	require.NoError(t, client.Listen(ctx, Management, clientAddr))
	defer client.Close()

	ackCtx, ackCancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer ackCancel()

	_, err := client.SendWithAck(ackCtx, Management, serverAddr, wireproto.NewRequest(wireproto.CmdReboot, "", [wireproto.ParmCount]uint32{}, nil))
	assert.ErrorIs(t, err, ErrNoAckReceived)
}

func TestMtcAliveDispatchesToHandler(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serverAddr := pickFreeUDPAddr(t)
	handler := &recordingHandler{}
	server := New(nil, handler)
	require.NoError(t, server.Listen(ctx, Management, serverAddr))
	defer server.Close()

	senderAddr := pickFreeUDPAddr(t)
	sender := New(nil, &recordingHandler{})
	require.NoError(t, sender.Listen(ctx, Management, senderAddr))
	defer sender.Close()

	payload, err := wireproto.EncodeJSON(wireproto.MtcAlivePayload{Hostname: "worker-3", Personality: "worker", Uptime: 10})
	require.NoError(t, err)
	frame := wireproto.Frame{HeaderString: wireproto.ClassMtcAlive, Revision: wireproto.RevisionJSONBuf, Cmd: wireproto.CmdMtcAliveMsg, Buf: payload}

	require.NoError(t, sender.Send(Management, serverAddr, frame))

	require.Eventually(t, func() bool { return len(handler.mtcAlive) == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, "worker-3", handler.mtcAlive[0].Hostname)
}
