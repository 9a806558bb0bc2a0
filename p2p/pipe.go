//
// Copyright (c) 2025-2026 Markku Rossi
//
// All rights reserved.
//

package p2p

import (
	"io"
)

// Pipe implements the Conn interface as a bidirectional communication
// pipe. Anything send to the first endpoint can be received from the
// second and vice versa.
func Pipe() (*Conn, *Conn) {
	var p0, p1 pipe

	p0.r, p1.w = io.Pipe()
	p1.r, p0.w = io.Pipe()

	return NewConn(&p0), NewConn(&p1)
}

type pipe struct {
	r *io.PipeReader
	w *io.PipeWriter
}

func (p *pipe) Close() error {
	if err := p.r.Close(); err != nil {
		return err
	}
	return p.w.Close()
}

func (p *pipe) Read(data []byte) (n int, err error) {
	return p.r.Read(data)
}

func (p *pipe) Write(data []byte) (n int, err error) {
	return p.w.Write(data)
}

// PipeMesh creates a full mesh of pipes between n parties. The result
// is indexed by party ID and maps peer IDs to the party's connection
// to that peer. Party IDs are 1-based.
func PipeMesh(n int) map[int]map[int]*Conn {
	result := make(map[int]map[int]*Conn)
	for id := 1; id <= n; id++ {
		result[id] = make(map[int]*Conn)
	}
	for i := 1; i <= n; i++ {
		for j := i + 1; j <= n; j++ {
			ci, cj := Pipe()
			result[i][j] = ci
			result[j][i] = cj
		}
	}
	return result
}
