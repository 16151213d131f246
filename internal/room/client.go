package room

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

var (
	ErrClosed    = errors.New("connection closed")
	ErrQueueFull = errors.New("outbound queue full")
)

// Transport writes frames to the remote peer.
type Transport interface {
	Write(ctx context.Context, msg []byte) error
	Close(reason string) error
}

// Client is a Conn backed by a bounded outbound queue. Frames are written to
// the Transport by Run, one at a time and in queue order.
type Client struct {
	id           string
	player       string
	transport    Transport
	outbox       chan []byte
	writeTimeout time.Duration

	done      chan struct{}
	closeOnce sync.Once
	mu        sync.Mutex
	reason    string
}

func NewClient(player string, t Transport, queueSize int, writeTimeout time.Duration) (*Client, error) {
	id, err := gonanoid.New()
	if err != nil {
		return nil, fmt.Errorf("generating connection id: %w", err)
	}
	return &Client{
		id:           id,
		player:       player,
		transport:    t,
		outbox:       make(chan []byte, queueSize),
		writeTimeout: writeTimeout,
		done:         make(chan struct{}),
	}, nil
}

func (c *Client) ID() string     { return c.id }
func (c *Client) Player() string { return c.player }

// Send queues msg without blocking.
func (c *Client) Send(msg []byte) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	select {
	case c.outbox <- msg:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops the client. The transport itself is closed by Run.
func (c *Client) Close(reason string) {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.reason = reason
		c.mu.Unlock()
		close(c.done)
	})
}

// Done is closed once Close has been called.
func (c *Client) Done() <-chan struct{} { return c.done }

// Run drains the outbound queue until ctx is cancelled, Close is called or a
// write fails. It closes the transport before returning.
func (c *Client) Run(ctx context.Context) error {
	defer func() {
		c.mu.Lock()
		reason := c.reason
		c.mu.Unlock()
		c.transport.Close(reason)
	}()

	for {
		select {
		case <-ctx.Done():
			c.Close("context done")
			return nil
		case <-c.done:
			return nil
		case msg := <-c.outbox:
			wctx, cancel := context.WithTimeout(ctx, c.writeTimeout)
			err := c.transport.Write(wctx, msg)
			cancel()
			if err != nil {
				c.Close("write failed")
				return fmt.Errorf("writing to %s: %w", c.player, err)
			}
		}
	}
}
