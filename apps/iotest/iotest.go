//
// Copyright (c) 2023-2026 Markku Rossi
//
// All rights reserved.
//

package main

import (
	"bytes"
	"context"
	"fmt"

	"github.com/ArrowSides/fresco/protocol"
)

// transfer streams size bytes from party 1 to party 2 in frames of
// frameSize bytes. Each frame uses its own gate tag and the receiver
// acknowledges every window of frames so that the sender can't run
// arbitrarily far ahead. It returns the number of payload bytes the
// party sent or received.
func transfer(ctx context.Context, sess protocol.Session, size int64,
	frameSize, window int) (int64, error) {

	if sess.NumParties() != 2 {
		return 0, fmt.Errorf("I/O test needs 2 parties, got %d",
			sess.NumParties())
	}
	if frameSize <= 0 || window <= 0 {
		return 0, fmt.Errorf("invalid frame size %d or window %d",
			frameSize, window)
	}
	frame := bytes.Repeat([]byte{0x5a}, frameSize)

	var total int64
	for total < size {
		var tags []uint64
		for i := 0; i < window && total < size; i++ {
			n := int64(frameSize)
			if size-total < n {
				n = size - total
			}
			tag := sess.NextTag()
			tags = append(tags, tag)

			nw := sess.Gate(ctx, tag, 0)
			if sess.ID() == 1 {
				if err := nw.Send(2, frame[:n]); err != nil {
					return total, err
				}
			} else {
				data, err := nw.Receive(1)
				if err != nil {
					return total, err
				}
				if int64(len(data)) != n {
					return total, fmt.Errorf("frame %d: got %d bytes, expected %d",
						tag, len(data), n)
				}
			}
			total += n
		}

		// Acknowledge the window.
		nw := sess.Gate(ctx, tags[len(tags)-1], 1)
		if sess.ID() == 2 {
			if err := nw.Send(1, []byte{1}); err != nil {
				return total, err
			}
			if err := sess.Flush(); err != nil {
				return total, err
			}
		} else if _, err := nw.Receive(2); err != nil {
			return total, err
		}
	}
	return total, nil
}
