package network

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/automoto/physnet/shared/netconfig"
)

// Every substrate packet starts with one header byte: channel<<1 | reliable.
// The header 0xff marks a disconnect notification followed by a u32 reason.
const (
	frameHeaderSize = 1
	frameDisconnect = 0xff
)

var errBadFrame = errors.New("bad frame")

type frame struct {
	disconnect  bool
	reason      netconfig.DisconnectReason
	channel     netconfig.Channel
	reliability netconfig.Reliability
	payload     []byte
}

func encodeFrame(ch netconfig.Channel, rel netconfig.Reliability, payload []byte) ([]byte, error) {
	if ch >= netconfig.ChannelCount {
		return nil, fmt.Errorf("%w: channel %d", errBadFrame, ch)
	}
	b := make([]byte, frameHeaderSize+len(payload))
	b[0] = byte(ch)<<1 | byte(rel&1)
	copy(b[frameHeaderSize:], payload)
	return b, nil
}

func encodeDisconnect(reason netconfig.DisconnectReason) []byte {
	b := make([]byte, 5)
	b[0] = frameDisconnect
	binary.LittleEndian.PutUint32(b[1:], uint32(reason))
	return b
}

func decodeFrame(b []byte) (frame, error) {
	if len(b) < frameHeaderSize {
		return frame{}, fmt.Errorf("%w: empty packet", errBadFrame)
	}
	if b[0] == frameDisconnect {
		if len(b) < 5 {
			return frame{disconnect: true}, nil
		}
		return frame{
			disconnect: true,
			reason:     netconfig.DisconnectReason(binary.LittleEndian.Uint32(b[1:])),
		}, nil
	}
	ch := netconfig.Channel(b[0] >> 1)
	if ch >= netconfig.ChannelCount {
		return frame{}, fmt.Errorf("%w: channel %d", errBadFrame, ch)
	}
	return frame{
		channel:     ch,
		reliability: netconfig.Reliability(b[0] & 1),
		payload:     b[frameHeaderSize:],
	}, nil
}
