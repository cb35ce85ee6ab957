// Package client receives frames of motion capture data from a NatNet
// server and keeps the names of the rigid bodies up to date.
package client

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/mdzio/go-lib/conc"
	"github.com/mdzio/go-logging"
	"github.com/mdzio/go-natnet/model"
	"github.com/mdzio/go-natnet/wire"
)

var clnLog = logging.Get("natnet-client")

// State is the state of the client loop.
type State int

// States of the client loop.
const (
	Idle State = iota
	Refreshing
	Streaming
)

var stateStr = []string{
	Idle:       "Idle",
	Refreshing: "Refreshing",
	Streaming:  "Streaming",
}

// String implements the Stringer interface.
func (s State) String() string {
	if s < 0 || int(s) >= len(stateStr) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateStr[s]
}

// A Consumer receives the decoded frames together with the rigid body names
// valid at that time.
type Consumer interface {
	Frame(frame *model.FrameOfData, names *ModelCache)
}

// ConsumerFunc adapts a function to the Consumer interface.
type ConsumerFunc func(frame *model.FrameOfData, names *ModelCache)

// Frame implements Consumer.
func (f ConsumerFunc) Frame(frame *model.FrameOfData, names *ModelCache) {
	f(frame, names)
}

// Client combines the command and data channel of a server. The rigid body
// names are refreshed periodically while frames are received.
type Client struct {
	cfg  Config
	cmd  *CommandChannel
	data *DataChannel

	mtx         sync.Mutex // for cache, state
	cache       *ModelCache
	state       State
	lastAttempt time.Time

	closeOnce sync.Once
	closeErr  error
	cancel    func()
	done      chan struct{}
}

// Connect opens the command and the data channel.
func Connect(cfg Config) (*Client, error) {
	cfg.setDefaults()
	cmd, err := OpenCommandChannel(cfg.CommandAddr, cfg.MaxDatagramSize)
	if err != nil {
		return nil, err
	}
	data, err := OpenDataChannel(cfg.DataAddr, cfg.Interface, cfg.MaxDatagramSize)
	if err != nil {
		cmd.Close()
		return nil, err
	}
	clnLog.Infof("Connected to server %s, data channel %s", cfg.CommandAddr, cfg.DataAddr)
	return &Client{
		cfg:   cfg,
		cmd:   cmd,
		data:  data,
		cache: &ModelCache{},
	}, nil
}

// DataAddr returns the local address of the data channel.
func (c *Client) DataAddr() net.Addr {
	return c.data.LocalAddr()
}

// State returns the current state of the client loop.
func (c *Client) State() State {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.state
}

func (c *Client) setState(s State) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	if c.state != s {
		clnLog.Tracef("State %s -> %s", c.state, s)
		c.state = s
	}
}

// Cache returns the current rigid body names.
func (c *Client) Cache() *ModelCache {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.cache
}

// RigidBodyName returns the name of a rigid body, if known.
func (c *Client) RigidBodyName(id uint32) (string, bool) {
	return c.Cache().Name(id)
}

// NextFrame returns the next valid frame. The rigid body names are refreshed
// before receiving, if needed. Failed refreshes, invalid datagrams and
// ignored message kinds do not end the call. ErrSocketClosed is returned
// after Close.
func (c *Client) NextFrame() (*model.FrameOfData, error) {
	for {
		if err := c.refreshIfNeeded(); err != nil {
			return nil, err
		}
		c.setState(Streaming)
		f, err := c.data.ReceiveFrame()
		if err != nil {
			if errors.Is(err, ErrSocketClosed) {
				return nil, err
			}
			if wire.IsDecodeError(err) {
				clnLog.Warning(err)
				continue
			}
			return nil, err
		}
		if f == nil {
			// ignored message kind
			continue
		}
		return f, nil
	}
}

// refreshIfNeeded updates the rigid body names. Attempts are at least the
// shorter of refresh interval and command timeout apart, measured from the
// end of the previous attempt. Only a closed socket or a transport failure
// is returned.
func (c *Client) refreshIfNeeded() error {
	now := time.Now()
	c.mtx.Lock()
	cache := c.cache
	due := cache.NeedsRefresh(now, c.cfg.RefreshInterval) &&
		now.Sub(c.lastAttempt) > c.retryDelay()
	c.mtx.Unlock()
	if !due {
		return nil
	}

	c.setState(Refreshing)
	next, err := cache.Refresh(c.cmd, c.cfg.CommandTimeout)
	c.mtx.Lock()
	c.cache = next
	c.lastAttempt = time.Now()
	c.mtx.Unlock()
	if err != nil {
		if errors.Is(err, ErrCommandTimeout) || wire.IsDecodeError(err) {
			clnLog.Warningf("Refreshing of rigid body names failed, keeping %d names: %v", cache.Len(), err)
			return nil
		}
		return err
	}
	clnLog.Debugf("Rigid body names refreshed: %d", next.Len())
	return nil
}

func (c *Client) retryDelay() time.Duration {
	if c.cfg.CommandTimeout < c.cfg.RefreshInterval {
		return c.cfg.CommandTimeout
	}
	return c.cfg.RefreshInterval
}

// Run passes frames to the consumer until the client is closed (returns nil)
// or a transport failure occurs.
func (c *Client) Run(consumer Consumer) error {
	return c.run(func() bool { return false }, consumer)
}

func (c *Client) run(stopped func() bool, consumer Consumer) error {
	for !stopped() {
		f, err := c.NextFrame()
		if err != nil {
			if errors.Is(err, ErrSocketClosed) {
				clnLog.Debug("Client loop stopped")
				return nil
			}
			return fmt.Errorf("Client loop failed: %w", err)
		}
		consumer.Frame(f, c.Cache())
	}
	return nil
}

// Start runs the client loop in the background. Stop must be called to
// terminate it.
func (c *Client) Start(consumer Consumer) {
	c.done = make(chan struct{})
	c.cancel = conc.DaemonFunc(func(ctx conc.Context) {
		defer close(c.done)
		if err := c.run(ctx.IsDone, consumer); err != nil {
			clnLog.Error(err)
		}
	})
}

// Stop closes the client and waits for the background loop to terminate.
func (c *Client) Stop() {
	c.Close()
	if c.cancel != nil {
		c.cancel()
		<-c.done
	}
}

// Close releases both sockets. Blocked calls return ErrSocketClosed.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		err := c.data.Close()
		if err2 := c.cmd.Close(); err == nil {
			err = err2
		}
		c.closeErr = err
		clnLog.Debug("Client closed")
	})
	return c.closeErr
}
