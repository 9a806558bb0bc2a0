//
// Copyright (c) 2020-2026 Markku Rossi
//
// All rights reserved.
//

package p2p

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"

	"github.com/ArrowSides/fresco/env"
)

const (
	// ProtocolVersion is the version byte exchanged in the connection
	// handshake.
	ProtocolVersion byte = 1
)

// Dial creates a full mesh of TCP connections between the parties of
// the network nw. Each party listens on its own address, dials all
// parties with a higher ID, and accepts connections from all parties
// with a lower ID. The dialing party announces its ID in the
// handshake. The returned map is indexed by peer ID.
func Dial(ctx context.Context, nw *env.Network, log zerolog.Logger) (
	map[int]*Conn, error) {

	if err := nw.Validate(); err != nil {
		return nil, err
	}
	log = log.With().Str("component", "network").Int("party", nw.ID).
		Logger()

	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", nw.Addr())
	if err != nil {
		return nil, err
	}
	defer listener.Close()

	var m sync.Mutex
	conns := make(map[int]*Conn)
	add := func(id int, conn *Conn) error {
		m.Lock()
		defer m.Unlock()
		if _, ok := conns[id]; ok {
			return fmt.Errorf("peer %d already connected", id)
		}
		conns[id] = conn
		return nil
	}

	var wg sync.WaitGroup
	var errs error
	var errsM sync.Mutex
	report := func(err error) {
		errsM.Lock()
		errs = multierror.Append(errs, err)
		errsM.Unlock()
		// Unblock the accept loop.
		listener.Close()
	}

	// Accept connections from lower IDs.
	numAccept := nw.ID - 1
	if numAccept > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < numAccept; i++ {
				nc, err := listener.Accept()
				if err != nil {
					report(fmt.Errorf("accept: %w", err))
					return
				}
				conn := NewConn(nc)
				id, err := accept(conn)
				if err != nil {
					conn.Close()
					report(err)
					return
				}
				if id < 1 || id >= nw.ID {
					conn.Close()
					report(fmt.Errorf("unexpected peer ID %d", id))
					return
				}
				if err := add(id, conn); err != nil {
					conn.Close()
					report(err)
					return
				}
				log.Info().Int("peer", id).Str("remote", nc.RemoteAddr().String()).
					Msg("accepted peer")
			}
		}()
	}

	// Dial higher IDs.
	for id := nw.ID + 1; id <= nw.NumParties(); id++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			conn, err := dial(ctx, nw, id, log)
			if err != nil {
				report(err)
				return
			}
			if err := add(id, conn); err != nil {
				conn.Close()
				report(err)
				return
			}
			log.Info().Int("peer", id).Str("addr", nw.Parties[id]).
				Msg("connected to peer")
		}(id)
	}

	// Unblock the accept loop if the context is canceled.
	stop := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			listener.Close()
		case <-stop:
		}
	}()
	wg.Wait()
	close(stop)

	if errs != nil {
		for _, conn := range conns {
			conn.Close()
		}
		return nil, errs
	}
	return conns, nil
}

func dial(ctx context.Context, nw *env.Network, id int,
	log zerolog.Logger) (*Conn, error) {

	backoff := retry.WithMaxRetries(nw.GetDialRetries(),
		retry.NewConstant(nw.GetDialDelay()))

	var d net.Dialer
	var nc net.Conn
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var err error
		nc, err = d.DialContext(ctx, "tcp", nw.Parties[id])
		if err != nil {
			log.Debug().Err(err).Int("peer", id).Msg("connect failed, retrying")
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("connect to peer %d at %s: %w",
			id, nw.Parties[id], err)
	}

	conn := NewConn(nc)
	if err := conn.SendByte(ProtocolVersion); err != nil {
		conn.Close()
		return nil, err
	}
	if err := conn.SendUint32(nw.ID); err != nil {
		conn.Close()
		return nil, err
	}
	if err := conn.Flush(); err != nil {
		conn.Close()
		return nil, err
	}
	version, err := conn.ReceiveByte()
	if err != nil {
		conn.Close()
		return nil, err
	}
	if version != ProtocolVersion {
		conn.Close()
		return nil, fmt.Errorf("peer %d: unsupported protocol version %d",
			id, version)
	}
	return conn, nil
}

func accept(conn *Conn) (int, error) {
	version, err := conn.ReceiveByte()
	if err != nil {
		return 0, err
	}
	if version != ProtocolVersion {
		return 0, fmt.Errorf("unsupported protocol version %d", version)
	}
	id, err := conn.ReceiveUint32()
	if err != nil {
		return 0, err
	}
	if err := conn.SendByte(ProtocolVersion); err != nil {
		return 0, err
	}
	if err := conn.Flush(); err != nil {
		return 0, err
	}
	return id, nil
}
