//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package p2p

import (
	"context"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ArrowSides/fresco/env"
	"github.com/ArrowSides/fresco/protocol"
)

func newSessions(t *testing.T, n int, config *env.Config) []*Session {
	mesh := PipeMesh(n)
	var result []*Session
	for id := 1; id <= n; id++ {
		s, err := NewSession(id, mesh[id], config)
		require.NoError(t, err)
		result = append(result, s)
	}
	t.Cleanup(func() {
		for _, s := range result {
			s.Abort()
			s.Close()
		}
	})
	return result
}

func TestSessionDemux(t *testing.T) {
	sessions := newSessions(t, 2, new(env.Config))
	s1, s2 := sessions[0], sessions[1]
	ctx := context.Background()

	require.NoError(t, s1.Gate(ctx, 1, 0).Send(2, []byte("gate 1")))
	require.NoError(t, s1.Gate(ctx, 2, 0).Send(2, []byte("gate 2")))
	require.NoError(t, s1.Gate(ctx, 1, 1).Send(2, []byte("gate 1 round 1")))
	require.NoError(t, s1.Flush())

	// Receive out of send order.
	data, err := s2.Gate(ctx, 2, 0).Receive(1)
	require.NoError(t, err)
	assert.Equal(t, "gate 2", string(data))

	data, err = s2.Gate(ctx, 1, 0).Receive(1)
	require.NoError(t, err)
	assert.Equal(t, "gate 1", string(data))

	data, err = s2.Gate(ctx, 1, 1).Receive(1)
	require.NoError(t, err)
	assert.Equal(t, "gate 1 round 1", string(data))
}

func TestSessionExchange(t *testing.T) {
	const n = 3
	sessions := newSessions(t, n, new(env.Config))

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i, s := range sessions {
		wg.Add(1)
		go func(i int, s *Session) {
			defer wg.Done()
			nw := s.Gate(context.Background(), 7, 0)
			own := []byte(fmt.Sprintf("P%d", s.ID()))
			if err := protocol.Broadcast(nw, own); err != nil {
				errs[i] = err
				return
			}
			all, err := protocol.ReceiveAll(nw, own)
			if err != nil {
				errs[i] = err
				return
			}
			for id := 1; id <= n; id++ {
				if string(all[id-1]) != fmt.Sprintf("P%d", id) {
					errs[i] = fmt.Errorf("P%d: got %q from %d", s.ID(),
						all[id-1], id)
					return
				}
			}
		}(i, s)
	}
	wg.Wait()
	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Greater(t, sessions[0].Stats().Sum(), uint64(0))
}

func TestSessionSelf(t *testing.T) {
	sessions := newSessions(t, 2, new(env.Config))
	nw := sessions[0].Gate(context.Background(), 3, 0)

	require.NoError(t, nw.Send(1, []byte{1, 2, 3}))
	data, err := nw.Receive(1)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, data)
}

func TestSessionRoundMismatch(t *testing.T) {
	sessions := newSessions(t, 2, new(env.Config))
	ctx := context.Background()

	require.NoError(t, sessions[0].Gate(ctx, 1, 0).Send(2, []byte{0}))
	require.NoError(t, sessions[0].Flush())

	_, err := sessions[1].Gate(ctx, 1, 1).Receive(1)
	require.Error(t, err)
	assert.Equal(t, protocol.KindProtocol, protocol.KindOf(err))
}

func TestSessionTimeout(t *testing.T) {
	sessions := newSessions(t, 2, &env.Config{
		ReceiveTimeout: 50 * time.Millisecond,
	})

	_, err := sessions[1].Gate(context.Background(), 1, 0).Receive(1)
	require.Error(t, err)
	assert.Equal(t, protocol.KindTransport, protocol.KindOf(err))
}

func TestSessionCanceled(t *testing.T) {
	sessions := newSessions(t, 2, new(env.Config))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	_, err := sessions[1].Gate(ctx, 1, 0).Receive(1)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSessionFrameTooLarge(t *testing.T) {
	mesh := PipeMesh(2)
	s1, err := NewSession(1, mesh[1], new(env.Config))
	require.NoError(t, err)
	s2, err := NewSession(2, mesh[2], &env.Config{
		MaxFrameSize: 16,
	})
	require.NoError(t, err)
	defer s1.Close()
	defer s2.Close()

	ctx := context.Background()
	require.NoError(t, s1.Gate(ctx, 1, 0).Send(2, make([]byte, 32)))
	require.NoError(t, s1.Flush())

	_, err = s2.Gate(ctx, 1, 0).Receive(1)
	require.Error(t, err)
	assert.Equal(t, protocol.KindProtocol, protocol.KindOf(err))

	// Sends over the limit are rejected locally.
	err = s2.Gate(ctx, 1, 0).Send(1, make([]byte, 32))
	assert.Equal(t, protocol.KindProtocol, protocol.KindOf(err))
}

func TestSessionPeerClosed(t *testing.T) {
	sessions := newSessions(t, 2, new(env.Config))

	require.NoError(t, sessions[0].Close())
	require.NoError(t, sessions[0].Close())

	_, err := sessions[1].Gate(context.Background(), 1, 0).Receive(1)
	require.Error(t, err)
	assert.Equal(t, protocol.KindTransport, protocol.KindOf(err))
}

func TestSessionTags(t *testing.T) {
	sessions := newSessions(t, 2, new(env.Config))

	assert.Equal(t, uint64(1), sessions[0].NextTag())
	assert.Equal(t, uint64(2), sessions[0].NextTag())
	assert.Equal(t, uint64(1), sessions[1].NextTag())
	assert.Equal(t, 2, sessions[0].NumParties())
}

func freeAddr(t *testing.T) string {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().String()
}

func TestDial(t *testing.T) {
	const n = 3
	parties := make(map[int]string)
	for id := 1; id <= n; id++ {
		parties[id] = freeAddr(t)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	result := make([]map[int]*Conn, n)
	errs := make([]error, n)
	for id := 1; id <= n; id++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			nw := &env.Network{
				ID:        id,
				Parties:   parties,
				DialDelay: 20 * time.Millisecond,
			}
			result[id-1], errs[id-1] = Dial(ctx, nw, zerolog.Nop())
		}(id)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Len(t, result[i], n-1)
	}

	// Exchange one message over the dialed mesh.
	var sessions []*Session
	for id := 1; id <= n; id++ {
		s, err := NewSession(id, result[id-1], new(env.Config))
		require.NoError(t, err)
		sessions = append(sessions, s)
	}
	require.NoError(t, sessions[2].Gate(ctx, 1, 0).Send(1, []byte("hello")))
	require.NoError(t, sessions[2].Flush())
	data, err := sessions[0].Gate(ctx, 1, 0).Receive(3)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	for _, s := range sessions {
		s.Close()
	}
}
