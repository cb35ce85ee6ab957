package client

import (
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/mdzio/go-logging"
	"github.com/mdzio/go-natnet/model"
	"github.com/mdzio/go-natnet/wire"
)

var cmdLog = logging.Get("natnet-command")

var (
	// ErrCommandTimeout is returned when no matching reply arrives in time.
	ErrCommandTimeout = errors.New("Command timeout")

	// ErrSocketClosed is returned by blocking calls after the socket is
	// closed. It signals a shutdown.
	ErrSocketClosed = errors.New("Socket closed")
)

// CommandChannel sends commands to the unicast command port of a server and
// receives the replies. The protocol carries no request IDs, so a reply can
// not be assigned to a specific request.
type CommandChannel struct {
	dest *net.UDPAddr
	conn net.PacketConn
	buf  []byte
}

// OpenCommandChannel binds a local UDP port for communicating with the
// server at addr (host:port).
func OpenCommandChannel(addr string, maxDatagramSize int) (*CommandChannel, error) {
	dest, err := net.ResolveUDPAddr("udp4", addr)
	if err != nil {
		return nil, fmt.Errorf("Invalid command address %s: %w", addr, err)
	}
	conn, err := net.ListenPacket("udp4", ":0")
	if err != nil {
		return nil, fmt.Errorf("Opening of command socket failed: %w", err)
	}
	if maxDatagramSize <= 0 {
		maxDatagramSize = DefaultMaxDatagramSize
	}
	cmdLog.Debugf("Command channel to %s opened on %s", dest, conn.LocalAddr())
	return &CommandChannel{
		dest: dest,
		conn: conn,
		buf:  make([]byte, maxDatagramSize),
	}, nil
}

// LocalAddr returns the local address of the command socket.
func (c *CommandChannel) LocalAddr() net.Addr {
	return c.conn.LocalAddr()
}

// Close closes the socket. Blocked calls return ErrSocketClosed.
func (c *CommandChannel) Close() error {
	return c.conn.Close()
}

// SendCommand sends a command with a string payload as one datagram.
func (c *CommandChannel) SendCommand(kind model.MessageKind, payload string) error {
	b, err := wire.EncodeCommand(kind, payload)
	if err != nil {
		return fmt.Errorf("Encoding of command %s failed: %w", kind, err)
	}
	cmdLog.Tracef("Sending command %s(%q) to %s", kind, payload, c.dest)
	if _, err := c.conn.WriteTo(b, c.dest); err != nil {
		return ioError(err, "Sending of command %s to %s failed", kind, c.dest)
	}
	return nil
}

// RequestModelDefinition requests the model definition.
func (c *CommandChannel) RequestModelDefinition() error {
	return c.SendCommand(model.RequestModelDef, "")
}

// RequestServerInfo requests the server info.
func (c *CommandChannel) RequestServerInfo() error {
	return c.SendCommand(model.Connect, "Ping")
}

// AwaitModelDefinition receives replies until a model definition arrives.
// Other replies are discarded. ErrCommandTimeout is returned, if no model
// definition arrives within timeout.
func (c *CommandChannel) AwaitModelDefinition(timeout time.Duration) (*model.ModelDefinition, error) {
	body, err := c.await(model.ModelDef, timeout)
	if err != nil {
		return nil, err
	}
	def, err := wire.DecodeModelDefinition(body)
	if err != nil {
		return nil, fmt.Errorf("Decoding of model definition from %s failed: %w", c.dest, err)
	}
	cmdLog.Debugf("Model definition with %d datasets received from %s", len(def.Datasets), c.dest)
	return def, nil
}

// Ping requests the server info and waits for the reply.
func (c *CommandChannel) Ping(timeout time.Duration) error {
	if err := c.RequestServerInfo(); err != nil {
		return err
	}
	_, err := c.await(model.ServerInfo, timeout)
	return err
}

// await receives datagrams until one of the specified kind arrives and
// returns a cursor positioned at its body.
func (c *CommandChannel) await(kind model.MessageKind, timeout time.Duration) (*wire.Cursor, error) {
	if err := c.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return nil, ioError(err, "Setting of read deadline failed")
	}
	defer c.conn.SetReadDeadline(time.Time{})

	for {
		n, src, err := c.conn.ReadFrom(c.buf)
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				return nil, fmt.Errorf("No %s reply from %s within %s: %w", kind, c.dest, timeout, ErrCommandTimeout)
			}
			return nil, ioError(err, "Receiving from %s failed", c.dest)
		}
		cur := wire.NewCursor(c.buf[:n])
		h, err := wire.DecodeHeader(cur)
		if err != nil {
			cmdLog.Warningf("Invalid reply from %s: %v", src, err)
			continue
		}
		if h.ID != kind {
			cmdLog.Tracef("Discarding reply %s from %s", h.ID, src)
			continue
		}
		return cur, nil
	}
}

// ioError maps errors of a closed socket to ErrSocketClosed.
func ioError(err error, format string, args ...interface{}) error {
	if errors.Is(err, net.ErrClosed) {
		return ErrSocketClosed
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}
