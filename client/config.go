package client

import "time"

const (
	// DefaultCommandAddr is the command port of a server on the local host.
	DefaultCommandAddr = "127.0.0.1:1510"
	// DefaultDataAddr is the default multicast group and data port.
	DefaultDataAddr = "239.255.42.99:1511"
	// DefaultRefreshInterval is the max. age of the rigid body names.
	DefaultRefreshInterval = 1 * time.Second
	// DefaultCommandTimeout bounds the wait for a command reply.
	DefaultCommandTimeout = 5 * time.Second
	// DefaultMaxDatagramSize is large enough for any UDP datagram.
	DefaultMaxDatagramSize = 64 * 1024
)

// Config holds the settings of a Client. Zero values are replaced by the
// defaults.
type Config struct {
	// Unicast address (host:port) of the command channel of the server.
	CommandAddr string

	// Address (group:port) of the data channel. If the IP address is not a
	// multicast address, the client listens for unicast datagrams on it.
	DataAddr string

	// Name or IP address of the network interface for joining the multicast
	// group. If empty, the system chooses the interface.
	Interface string

	// Rigid body names are requested again, if they are older than this.
	RefreshInterval time.Duration

	// Max. wait time for the reply to a model definition request.
	CommandTimeout time.Duration

	// Size of the receive buffers.
	MaxDatagramSize int
}

func (c *Config) setDefaults() {
	if c.CommandAddr == "" {
		c.CommandAddr = DefaultCommandAddr
	}
	if c.DataAddr == "" {
		c.DataAddr = DefaultDataAddr
	}
	if c.RefreshInterval == 0 {
		c.RefreshInterval = DefaultRefreshInterval
	}
	if c.CommandTimeout == 0 {
		c.CommandTimeout = DefaultCommandTimeout
	}
	if c.MaxDatagramSize == 0 {
		c.MaxDatagramSize = DefaultMaxDatagramSize
	}
}
