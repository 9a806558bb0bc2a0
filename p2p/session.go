//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package p2p

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ef-ds/deque"
	"github.com/hashicorp/go-multierror"
	"github.com/markkurossi/text/superscript"
	"github.com/rs/zerolog"

	"github.com/ArrowSides/fresco/env"
	"github.com/ArrowSides/fresco/protocol"
)

var (
	_ protocol.Session = &Session{}
	_ protocol.Network = &gateNetwork{}
)

// Session implements the demultiplexing network of one run. Each
// message is framed as [tag uint64][round uint32][payload] and routed
// to an inbound queue keyed by its sender and gate tag. One reader
// goroutine per peer connection fills the queues so that gates of a
// batch can receive in any order.
type Session struct {
	id       int
	log      zerolog.Logger
	timeout  time.Duration
	maxFrame int
	peers    map[int]*peer
	order    []int
	tag      atomic.Uint64

	m       sync.Mutex
	inbox   map[inboxKey]*deque.Deque
	waiters map[inboxKey]chan struct{}
	failed  map[int]error

	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
	wg        sync.WaitGroup
}

type peer struct {
	id   int
	m    sync.Mutex
	conn *Conn
}

type inboxKey struct {
	from int
	tag  uint64
}

type frame struct {
	round int
	data  []byte
}

// NewSession creates a new session for the party id over the peer
// connections conns. The conns map is indexed by peer ID.
func NewSession(id int, conns map[int]*Conn, config *env.Config) (
	*Session, error) {

	if id < 1 || id > len(conns)+1 {
		return nil, fmt.Errorf("invalid party ID %d for %d parties",
			id, len(conns)+1)
	}
	s := &Session{
		id:       id,
		timeout:  config.ReceiveTimeout,
		maxFrame: config.GetMaxFrameSize(),
		peers:    make(map[int]*peer),
		inbox:    make(map[inboxKey]*deque.Deque),
		waiters:  make(map[inboxKey]chan struct{}),
		failed:   make(map[int]error),
		done:     make(chan struct{}),
	}
	s.log = config.GetLogger().With().
		Str("component", "session").
		Str("party", "P"+superscript.Itoa(id)).
		Logger()

	for pid, conn := range conns {
		if pid == id || pid < 1 || pid > len(conns)+1 {
			return nil, fmt.Errorf("invalid peer ID %d", pid)
		}
		s.peers[pid] = &peer{
			id:   pid,
			conn: conn,
		}
		s.order = append(s.order, pid)
	}
	sort.Ints(s.order)

	for _, pid := range s.order {
		s.wg.Add(1)
		go s.reader(s.peers[pid])
	}
	return s, nil
}

// ID returns the party ID.
func (s *Session) ID() int {
	return s.id
}

// NumParties returns the number of parties in the session.
func (s *Session) NumParties() int {
	return len(s.peers) + 1
}

// NextTag implements protocol.Session.NextTag.
func (s *Session) NextTag() uint64 {
	return s.tag.Add(1)
}

// Gate implements protocol.Session.Gate.
func (s *Session) Gate(ctx context.Context, tag uint64,
	round int) protocol.Network {

	return &gateNetwork{
		ctx:     ctx,
		session: s,
		tag:     tag,
		round:   round,
	}
}

// Flush flushes pending output to all peers.
func (s *Session) Flush() error {
	for _, pid := range s.order {
		p := s.peers[pid]
		p.m.Lock()
		err := p.conn.Flush()
		p.m.Unlock()
		if err != nil {
			return protocol.Wrap(protocol.KindTransport, "flush",
				fmt.Errorf("peer %d: %w", pid, err))
		}
	}
	return nil
}

// Stats returns the I/O statistics of all peer connections.
func (s *Session) Stats() IOStats {
	result := NewIOStats()
	for _, p := range s.peers {
		result = result.Add(p.conn.Stats)
	}
	return result
}

// Close flushes pending output and closes all peer connections. Close
// is idempotent.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)

		var result error
		for _, pid := range s.order {
			p := s.peers[pid]
			p.m.Lock()
			err := p.conn.Close()
			p.m.Unlock()
			if err != nil {
				result = multierror.Append(result,
					fmt.Errorf("peer %d: %w", pid, err))
			}
		}
		s.wg.Wait()
		s.closeErr = result
	})
	return s.closeErr
}

// Abort closes all peer connections without flushing unsent
// messages. Messages already flushed are delivered first, bounded by
// the receive timeout, so that the peers fail on their own checks and
// not on the closed connection. Abort unblocks all pending sends and
// receives and can be followed by Close.
func (s *Session) Abort() error {
	var result error
	for _, pid := range s.order {
		if err := s.peers[pid].conn.Abort(s.timeout); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result
}

func (s *Session) reader(p *peer) {
	defer s.wg.Done()

	for {
		tag, err := p.conn.ReceiveUint64()
		if err != nil {
			s.fail(p.id, err)
			return
		}
		round, err := p.conn.ReceiveUint32()
		if err != nil {
			s.fail(p.id, err)
			return
		}
		data, err := p.conn.ReceiveDataLimit(s.maxFrame)
		if err != nil {
			s.fail(p.id, err)
			return
		}
		s.deliver(p.id, tag, round, data)
	}
}

func (s *Session) fail(from int, err error) {
	var perr error
	if errors.Is(err, ErrTooLarge) {
		perr = protocol.Errorf(protocol.KindProtocol, "receive",
			"peer %d: %v", from, err)
	} else {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) {
			err = ErrClosed
		}
		perr = protocol.Errorf(protocol.KindTransport, "receive",
			"peer %d: %v", from, err)
	}

	select {
	case <-s.done:
		s.log.Debug().Int("peer", from).Err(err).Msg("reader stopped")
	default:
		s.log.Debug().Int("peer", from).Err(perr).Msg("reader failed")
	}

	s.m.Lock()
	s.failed[from] = perr
	for k, ch := range s.waiters {
		if k.from == from {
			close(ch)
			delete(s.waiters, k)
		}
	}
	s.m.Unlock()
}

func (s *Session) deliver(from int, tag uint64, round int, data []byte) {
	k := inboxKey{
		from: from,
		tag:  tag,
	}
	s.m.Lock()
	q, ok := s.inbox[k]
	if !ok {
		q = deque.New()
		s.inbox[k] = q
	}
	q.PushBack(&frame{
		round: round,
		data:  data,
	})
	ch, ok := s.waiters[k]
	if ok {
		close(ch)
		delete(s.waiters, k)
	}
	s.m.Unlock()
}

func (s *Session) send(from, to int, tag uint64, round int,
	data []byte) error {

	if len(data) > s.maxFrame {
		return protocol.Errorf(protocol.KindProtocol, "send",
			"message of %d bytes exceeds limit %d", len(data), s.maxFrame)
	}
	if to == from {
		s.deliver(from, tag, round, append([]byte(nil), data...))
		return nil
	}
	p, ok := s.peers[to]
	if !ok {
		return protocol.Errorf(protocol.KindProtocol, "send",
			"unknown party %d", to)
	}
	select {
	case <-s.done:
		return protocol.Wrap(protocol.KindTransport, "send", ErrClosed)
	default:
	}

	p.m.Lock()
	defer p.m.Unlock()

	if err := p.conn.SendUint64(tag); err != nil {
		return protocol.Wrap(protocol.KindTransport, "send", err)
	}
	if err := p.conn.SendUint32(round); err != nil {
		return protocol.Wrap(protocol.KindTransport, "send", err)
	}
	if err := p.conn.SendData(data); err != nil {
		return protocol.Wrap(protocol.KindTransport, "send", err)
	}
	return nil
}

func (s *Session) receive(ctx context.Context, from int, tag uint64,
	round int) ([]byte, error) {

	if from != s.id {
		if _, ok := s.peers[from]; !ok {
			return nil, protocol.Errorf(protocol.KindProtocol, "receive",
				"unknown party %d", from)
		}
		// Everything we owe the peers must be on the wire before we
		// wait for them.
		if err := s.Flush(); err != nil {
			return nil, err
		}
	}

	var timeout <-chan time.Time
	if s.timeout > 0 {
		timer := time.NewTimer(s.timeout)
		defer timer.Stop()
		timeout = timer.C
	}

	k := inboxKey{
		from: from,
		tag:  tag,
	}
	for {
		s.m.Lock()
		q, ok := s.inbox[k]
		if ok && q.Len() > 0 {
			v, _ := q.PopFront()
			if q.Len() == 0 {
				delete(s.inbox, k)
			}
			s.m.Unlock()

			f := v.(*frame)
			if f.round != round {
				return nil, protocol.Errorf(protocol.KindProtocol, "receive",
					"peer %d gate %d: got round %d, expected %d",
					from, tag, f.round, round)
			}
			return f.data, nil
		}
		if err, ok := s.failed[from]; ok {
			s.m.Unlock()
			return nil, err
		}
		ch, ok := s.waiters[k]
		if !ok {
			ch = make(chan struct{})
			s.waiters[k] = ch
		}
		s.m.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return nil, protocol.Wrap(protocol.KindTransport, "receive",
				ctx.Err())
		case <-timeout:
			return nil, protocol.Errorf(protocol.KindTransport, "receive",
				"peer %d gate %d round %d: timeout after %s",
				from, tag, round, s.timeout)
		case <-s.done:
			return nil, protocol.Wrap(protocol.KindTransport, "receive",
				ErrClosed)
		}
	}
}

// gateNetwork is the network view of one gate at one round.
type gateNetwork struct {
	ctx     context.Context
	session *Session
	tag     uint64
	round   int
}

func (nw *gateNetwork) ID() int {
	return nw.session.id
}

func (nw *gateNetwork) NumParties() int {
	return nw.session.NumParties()
}

func (nw *gateNetwork) Tag() uint64 {
	return nw.tag
}

func (nw *gateNetwork) Send(to int, data []byte) error {
	return nw.session.send(nw.session.id, to, nw.tag, nw.round, data)
}

func (nw *gateNetwork) Receive(from int) ([]byte, error) {
	return nw.session.receive(nw.ctx, from, nw.tag, nw.round)
}
