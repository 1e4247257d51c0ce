// SPDX-License-Identifier: BSD-3-Clause

package ipcserver

import (
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedServerAcceptsInProcessConnection(t *testing.T) {
	s, err := New(nil, "", 2*time.Second)
	require.NoError(t, err)
	require.NoError(t, s.Start())
	defer s.Shutdown()

	nc, err := nats.Connect("", nats.InProcessServer(s.ConnProvider()))
	require.NoError(t, err)
	defer nc.Close()

	require.True(t, nc.IsConnected())
}

func TestConnProviderRejectsNilServer(t *testing.T) {
	p := &ConnProvider{}
	_, err := p.InProcessConn()
	require.ErrorIs(t, err, ErrNotReady)
}
