// Package server implements a minimal NatNet server. It answers model
// definition and server info requests and publishes frames of data. It is
// used for testing clients and for simulations.
package server

import (
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/bytedance/gopkg/util/gopool"
	"github.com/mdzio/go-logging"
	"github.com/mdzio/go-natnet/model"
	"github.com/mdzio/go-natnet/wire"
	"golang.org/x/net/ipv4"
)

const (
	// max. size of a command datagram
	commandSizeLimit = 1024

	// TTL of published multicast datagrams
	multicastTTL = 1
)

var svrLog = logging.Get("natnet-server")

// Server is a NatNet server.
type Server struct {
	// Unicast address of the command port, e.g. ":1510".
	CommandAddr string

	// Destination of published frames, e.g. "239.255.42.99:1511".
	DataAddr string

	// Application name sent in server info replies.
	AppName string

	// Receives an error, if the command port fails. Can be nil.
	ServeErr chan<- error

	mtx   sync.RWMutex
	model *model.ModelDefinition

	cmdConn  net.PacketConn
	dataConn net.PacketConn
	stop     chan struct{}
	done     chan struct{}
}

// SetModel sets the model definition returned to clients.
func (s *Server) SetModel(def *model.ModelDefinition) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.model = def
}

// Model returns the current model definition.
func (s *Server) Model() *model.ModelDefinition {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	if s.model == nil {
		return &model.ModelDefinition{}
	}
	return s.model
}

// Addr returns the local address of the command port.
func (s *Server) Addr() net.Addr {
	return s.cmdConn.LocalAddr()
}

// Start opens the ports and starts serving commands.
func (s *Server) Start() error {
	// avoid blocking
	s.stop = make(chan struct{}, 1)
	s.done = make(chan struct{}, 1)

	svrLog.Infof("Starting NatNet server on address %s", s.CommandAddr)
	cmdConn, err := net.ListenPacket("udp4", s.CommandAddr)
	if err != nil {
		return fmt.Errorf("Listen on address %s failed: %w", s.CommandAddr, err)
	}
	dataConn, err := net.ListenPacket("udp4", ":0")
	if err != nil {
		cmdConn.Close()
		return fmt.Errorf("Opening of data socket failed: %w", err)
	}
	pc := ipv4.NewPacketConn(dataConn)
	if err := pc.SetMulticastTTL(multicastTTL); err != nil {
		svrLog.Warningf("Setting of multicast TTL failed: %v", err)
	}
	if err := pc.SetMulticastLoopback(true); err != nil {
		svrLog.Warningf("Enabling of multicast loopback failed: %v", err)
	}
	s.cmdConn = cmdConn
	s.dataConn = dataConn

	go s.serve()
	return nil
}

// Stop closes the ports.
func (s *Server) Stop() {
	svrLog.Debug("Shutting down NatNet server")
	s.stop <- struct{}{}
	s.cmdConn.Close()
	<-s.done
	s.dataConn.Close()
}

func (s *Server) serve() {
	for {
		buf := make([]byte, commandSizeLimit)
		n, src, err := s.cmdConn.ReadFrom(buf)
		if err != nil {
			// stop request?
			select {
			case <-s.stop:
				s.done <- struct{}{}
				return
			default:
			}
			// temporary error?
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			s.done <- struct{}{}
			if s.ServeErr != nil {
				s.ServeErr <- err
			}
			return
		}
		gopool.Go(func() { s.handle(buf[:n], src) })
	}
}

func (s *Server) handle(b []byte, src net.Addr) {
	c := wire.NewCursor(b)
	h, err := wire.DecodeHeader(c)
	if err != nil {
		svrLog.Warningf("Invalid command from %s: %v", src, err)
		return
	}
	svrLog.Tracef("Command %s received from %s", h.ID, src)

	var reply []byte
	switch h.ID {
	case model.RequestModelDef:
		reply, err = wire.EncodeModelDefinition(s.Model())
	case model.Connect:
		reply, err = s.encodeServerInfo()
	default:
		svrLog.Debugf("Ignoring command %s from %s", h.ID, src)
		return
	}
	if err != nil {
		svrLog.Errorf("Encoding of reply to %s failed: %v", h.ID, err)
		return
	}
	if _, err := s.cmdConn.WriteTo(reply, src); err != nil {
		svrLog.Warningf("Sending of reply to %s failed: %v", src, err)
	}
}

func (s *Server) encodeServerInfo() ([]byte, error) {
	e := wire.Encoder{}
	e.PutCString(s.AppName)
	if e.Err() != nil {
		return nil, e.Err()
	}
	return wire.EncodeMessage(model.ServerInfo, e.Bytes())
}

// Publish sends a frame to DataAddr.
func (s *Server) Publish(f *model.FrameOfData) error {
	return s.PublishTo(f, s.DataAddr)
}

// PublishTo sends a frame to the specified address.
func (s *Server) PublishTo(f *model.FrameOfData, addr string) error {
	b, err := wire.EncodeFrameOfData(f)
	if err != nil {
		return fmt.Errorf("Encoding of frame %d failed: %w", f.FrameNumber, err)
	}
	return s.SendTo(b, addr)
}

// SendTo sends a raw datagram from the data socket.
func (s *Server) SendTo(b []byte, addr string) error {
	a, err := net.ResolveUDPAddr("udp4", addr)
	if err != nil {
		return fmt.Errorf("Invalid data address %s: %w", addr, err)
	}
	if _, err := s.dataConn.WriteTo(b, a); err != nil {
		return fmt.Errorf("Sending to %s failed: %w", a, err)
	}
	return nil
}
