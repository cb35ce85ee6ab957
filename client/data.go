package client

import (
	"encoding/hex"
	"fmt"
	"net"
	"strconv"

	"github.com/mdzio/go-logging"
	"github.com/mdzio/go-natnet/model"
	"github.com/mdzio/go-natnet/wire"
	"golang.org/x/net/ipv4"
)

var dataLog = logging.Get("natnet-data")

// DataChannel receives frames from the data port of a server.
type DataChannel struct {
	conn  net.PacketConn
	pconn *ipv4.PacketConn
	ifi   *net.Interface
	group *net.UDPAddr
	buf   []byte
}

// OpenDataChannel listens on addr (group:port). A multicast group is joined
// on the network interface iface (name or IP address, empty for the system
// default). A unicast address is bound directly.
func OpenDataChannel(addr, iface string, maxDatagramSize int) (*DataChannel, error) {
	a, err := net.ResolveUDPAddr("udp4", addr)
	if err != nil {
		return nil, fmt.Errorf("Invalid data address %s: %w", addr, err)
	}
	if maxDatagramSize <= 0 {
		maxDatagramSize = DefaultMaxDatagramSize
	}
	d := &DataChannel{buf: make([]byte, maxDatagramSize)}

	// unicast
	if !a.IP.IsMulticast() {
		d.conn, err = net.ListenUDP("udp4", a)
		if err != nil {
			return nil, fmt.Errorf("Listening on %s failed: %w", a, err)
		}
		dataLog.Debugf("Data channel listening on %s", d.conn.LocalAddr())
		return d, nil
	}

	// multicast
	d.ifi, err = lookupInterface(iface)
	if err != nil {
		return nil, err
	}
	d.conn, err = net.ListenPacket("udp4", net.JoinHostPort("0.0.0.0", strconv.Itoa(a.Port)))
	if err != nil {
		return nil, fmt.Errorf("Listening on port %d failed: %w", a.Port, err)
	}
	d.pconn = ipv4.NewPacketConn(d.conn)
	d.group = &net.UDPAddr{IP: a.IP}
	if err := d.pconn.JoinGroup(d.ifi, d.group); err != nil {
		d.conn.Close()
		return nil, fmt.Errorf("Joining of multicast group %s failed: %w", a.IP, err)
	}
	if err := d.pconn.SetMulticastLoopback(true); err != nil {
		dataLog.Warningf("Enabling of multicast loopback failed: %v", err)
	}
	dataLog.Debugf("Data channel joined multicast group %s on port %d", a.IP, a.Port)
	return d, nil
}

// LocalAddr returns the local address of the data socket.
func (d *DataChannel) LocalAddr() net.Addr {
	return d.conn.LocalAddr()
}

// Close leaves the multicast group and closes the socket. A blocked
// ReceiveFrame returns ErrSocketClosed.
func (d *DataChannel) Close() error {
	if d.pconn != nil {
		if err := d.pconn.LeaveGroup(d.ifi, d.group); err != nil {
			dataLog.Tracef("Leaving of multicast group %s failed: %v", d.group.IP, err)
		}
	}
	return d.conn.Close()
}

// ReceiveFrame blocks until a datagram arrives. For a FrameOfData message the
// decoded frame is returned. Other message kinds are ignored: the frame and
// the error are both nil. A datagram shorter than a header returns
// wire.ErrTruncated; an invalid frame returns a *wire.FrameDecodeError.
func (d *DataChannel) ReceiveFrame() (*model.FrameOfData, error) {
	n, src, err := d.conn.ReadFrom(d.buf)
	if err != nil {
		return nil, ioError(err, "Receiving of data failed")
	}
	b := d.buf[:n]
	if dataLog.TraceEnabled() {
		dataLog.Tracef("Datagram from %s: %s", src, hex.EncodeToString(b))
	}

	c := wire.NewCursor(b)
	h, err := wire.DecodeHeader(c)
	if err != nil {
		return nil, fmt.Errorf("Datagram from %s: %w", src, err)
	}
	if h.ID != model.FrameOfDataMessage {
		dataLog.Tracef("Ignoring message %s from %s", h.ID, src)
		return nil, nil
	}
	f, err := wire.DecodeFrameOfData(c)
	if err != nil {
		return nil, fmt.Errorf("Datagram from %s: %w", src, err)
	}
	return f, nil
}

// lookupInterface finds a network interface by name or IP address.
func lookupInterface(s string) (*net.Interface, error) {
	if s == "" {
		return nil, nil
	}
	ip := net.ParseIP(s)
	if ip == nil {
		ifi, err := net.InterfaceByName(s)
		if err != nil {
			return nil, fmt.Errorf("Network interface %s not found: %w", s, err)
		}
		return ifi, nil
	}
	ifis, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("Listing of network interfaces failed: %w", err)
	}
	for i := range ifis {
		addrs, err := ifis[i].Addrs()
		if err != nil {
			continue
		}
		for _, a := range addrs {
			if ipn, ok := a.(*net.IPNet); ok && ipn.IP.Equal(ip) {
				return &ifis[i], nil
			}
		}
	}
	return nil, fmt.Errorf("No network interface with address %s", s)
}
