//
// protocol_test.go
//
// Copyright (c) 2023-2026 Markku Rossi
//
// All rights reserved.
//

package p2p

import (
	"bytes"
	"errors"
	"fmt"
	"testing"
	"time"
)

var tests = []interface{}{
	byte(42),
	uint32(44),
	uint64(0x0102030405060708),
	[]byte("Hello, world!"),
	make([]byte, 1024),
	make([]byte, 2*1024*1024),
	make([]byte, 8*1024*1024),
}

func writer(c *Conn) {
	for _, test := range tests {
		switch d := test.(type) {
		case byte:
			if err := c.SendByte(d); err != nil {
				fmt.Printf("SendByte: %v\n", err)
			}

		case uint32:
			if err := c.SendUint32(int(d)); err != nil {
				fmt.Printf("SendUint32: %v\n", err)
			}

		case uint64:
			if err := c.SendUint64(d); err != nil {
				fmt.Printf("SendUint64: %v\n", err)
			}

		case []byte:
			if err := c.SendData(d); err != nil {
				fmt.Printf("SendData [%v]byte: %v\n", len(d), err)
			}

		default:
			fmt.Printf("writer: invalid data: %v(%T)\n", test, test)
		}
	}
	if err := c.Flush(); err != nil {
		fmt.Printf("Flush: %v\n", err)
	}
}

func TestProtocol(t *testing.T) {
	cw, c := Pipe()

	go writer(cw)

	for _, test := range tests {
		switch d := test.(type) {
		case byte:
			v, err := c.ReceiveByte()
			if err != nil {
				t.Fatalf("ReceiveByte: %v", err)
			}
			if v != d {
				t.Errorf("ReceiveByte: got %v, expected %v", v, d)
			}

		case uint32:
			v, err := c.ReceiveUint32()
			if err != nil {
				t.Fatalf("ReceiveUint32: %v", err)
			}
			if v != int(d) {
				t.Errorf("ReceiveUint32: got %v, expected %v", v, d)
			}

		case uint64:
			v, err := c.ReceiveUint64()
			if err != nil {
				t.Fatalf("ReceiveUint64: %v", err)
			}
			if v != d {
				t.Errorf("ReceiveUint64: got %v, expected %v", v, d)
			}

		case []byte:
			v, err := c.ReceiveData()
			if err != nil {
				t.Fatalf("ReceiveData: %v", err)
			}
			if len(v) != len(d) {
				t.Errorf("ReceiveData: got [%v]byte, expected [%v]byte",
					len(v), len(d))
			}
			if !bytes.Equal(v, d) {
				t.Errorf("ReceiveData: data mismatch")
			}

		default:
			t.Errorf("invalid value: %v(%T)", test, test)
		}
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestReceiveDataLimit(t *testing.T) {
	cw, c := Pipe()

	done := make(chan error)
	go func() {
		if err := cw.SendData(make([]byte, 100)); err != nil {
			done <- err
			return
		}
		done <- cw.Flush()
	}()

	_, err := c.ReceiveDataLimit(64)
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("ReceiveDataLimit: got %v, expected %v", err, ErrTooLarge)
	}
	if err := <-done; err != nil {
		t.Fatalf("SendData: %v", err)
	}
	cw.Close()
	c.Close()
}

func TestAbortDeliversFlushed(t *testing.T) {
	c0, c1 := Pipe()

	type result struct {
		data []byte
		err  error
	}
	ch := make(chan result, 2)
	go func() {
		for i := 0; i < 2; i++ {
			data, err := c1.ReceiveData()
			ch <- result{
				data: data,
				err:  err,
			}
			if err != nil {
				return
			}
		}
	}()

	msg := []byte("flushed")
	if err := c0.SendData(msg); err != nil {
		t.Fatalf("SendData: %v", err)
	}
	if err := c0.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if err := c0.SendData([]byte("unflushed")); err != nil {
		t.Fatalf("SendData: %v", err)
	}
	if err := c0.Abort(time.Second); err != nil {
		t.Fatalf("Abort: %v", err)
	}

	r := <-ch
	if r.err != nil {
		t.Fatalf("ReceiveData: %v", r.err)
	}
	if !bytes.Equal(r.data, msg) {
		t.Errorf("ReceiveData: got %q, expected %q", r.data, msg)
	}
	r = <-ch
	if r.err == nil {
		t.Errorf("ReceiveData after Abort: got %q", r.data)
	}
	c0.Close()
	c1.Close()
}

func TestCloseIdempotent(t *testing.T) {
	c0, c1 := Pipe()

	if err := c0.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := c0.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if err := c0.Flush(); !errors.Is(err, ErrClosed) {
		t.Errorf("Flush after Close: got %v, expected %v", err, ErrClosed)
	}
	if _, err := c1.ReceiveByte(); err == nil {
		t.Errorf("ReceiveByte from closed peer succeeded")
	}
	c1.Close()
}
