package client

import (
	"testing"

	"github.com/mdzio/go-lib/testutil"
)

// Test configuration (environment variables)
const (
	// LOG_LEVEL: OFF, ERROR, WARNING, INFO, DEBUG, TRACE

	// command address of a running NatNet server, e.g. 192.168.0.10:1510
	natnetServer = "NATNET_SERVER"
	// multicast group and port of the server, e.g. 239.255.42.99:1511
	natnetData = "NATNET_DATA"
)

func TestLiveServer(t *testing.T) {
	cln, err := Connect(Config{
		CommandAddr: testutil.Config(t, natnetServer),
		DataAddr:    testutil.Config(t, natnetData),
	})
	if err != nil {
		t.Fatal(err)
	}
	defer cln.Close()

	if err := cln.cmd.Ping(DefaultCommandTimeout); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		f, err := cln.NextFrame()
		if err != nil {
			t.Fatal(err)
		}
		for _, rb := range f.RigidBodies {
			name, _ := cln.RigidBodyName(rb.ID)
			t.Logf("frame %d: rigid body %d (%s) at %v, valid: %v", f.FrameNumber, rb.ID, name, rb.Position, rb.TrackingValid)
		}
	}
}
