package stream

import "sync"

const defaultPeerQueue = 32

// Frame is one outbound websocket message. Binary frames carry relayed media,
// text frames carry control JSON.
type Frame struct {
	Binary bool
	Data   []byte
}

// Peer is one stream-channel connection. Its room and peer id are owned by the
// Relay and only change under the relay lock.
type Peer struct {
	ConnID string

	room   string
	peerID string

	out       chan Frame
	done      chan struct{}
	closeOnce sync.Once
}

// NewPeer builds a peer with a bounded outbound queue. A non-positive queue
// uses the default.
func NewPeer(connID string, queue int) *Peer {
	if queue <= 0 {
		queue = defaultPeerQueue
	}
	return &Peer{
		ConnID: connID,
		out:    make(chan Frame, queue),
		done:   make(chan struct{}),
	}
}

// Outbound yields the frames queued for this peer.
func (p *Peer) Outbound() <-chan Frame {
	return p.out
}

// Done is closed by Close.
func (p *Peer) Done() <-chan struct{} {
	return p.done
}

// Close marks the peer as gone. Frames queued afterwards are discarded.
func (p *Peer) Close() {
	p.closeOnce.Do(func() { close(p.done) })
}

// enqueue never blocks; a full queue or a closed peer drops the frame.
func (p *Peer) enqueue(f Frame) bool {
	select {
	case <-p.done:
		return false
	default:
	}
	select {
	case p.out <- f:
		return true
	default:
		return false
	}
}
