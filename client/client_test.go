package client

import (
	"errors"
	"testing"
	"time"

	"github.com/mdzio/go-natnet/model"
	"github.com/mdzio/go-natnet/server"
	"github.com/mdzio/go-natnet/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient(t *testing.T) {
	svr := startServer(t)
	cln, err := Connect(Config{
		CommandAddr: svr.Addr().String(),
		DataAddr:    "127.0.0.1:0",
	})
	require.NoError(t, err)
	defer cln.Close()
	assert.Equal(t, Idle, cln.State())
	_, ok := cln.RigidBodyName(3)
	assert.False(t, ok)

	require.NoError(t, svr.PublishTo(testFrame(1), cln.DataAddr().String()))
	require.NoError(t, svr.PublishTo(testFrame(2), cln.DataAddr().String()))

	f, err := cln.NextFrame()
	require.NoError(t, err)
	assert.Equal(t, testFrame(1), f)
	assert.Equal(t, Streaming, cln.State())
	name, ok := cln.RigidBodyName(3)
	assert.True(t, ok)
	assert.Equal(t, "Head", name)
	refreshed := cln.Cache().LastRefreshed()

	// cache is still fresh
	f, err = cln.NextFrame()
	require.NoError(t, err)
	assert.Equal(t, uint32(2), f.FrameNumber)
	assert.Equal(t, refreshed, cln.Cache().LastRefreshed())

	// frames end with close
	require.NoError(t, cln.Close())
	_, err = cln.NextFrame()
	assert.True(t, errors.Is(err, ErrSocketClosed), "unexpected error: %v", err)
}

func TestClientWithoutCommandReply(t *testing.T) {
	peer := silentPeer(t)
	cln, err := Connect(Config{
		CommandAddr:     peer.LocalAddr().String(),
		DataAddr:        "127.0.0.1:0",
		CommandTimeout:  100 * time.Millisecond,
		RefreshInterval: time.Hour,
	})
	require.NoError(t, err)
	defer cln.Close()

	frame, err := wire.EncodeFrameOfData(testFrame(5))
	require.NoError(t, err)
	send(t, cln.DataAddr(), []byte{1}, truncatedFrame(t), frame)

	// refresh times out, invalid datagrams are skipped
	f, err := cln.NextFrame()
	require.NoError(t, err)
	assert.Equal(t, testFrame(5), f)
	_, ok := cln.RigidBodyName(3)
	assert.False(t, ok)
	assert.Equal(t, 0, cln.Cache().Len())
}

func TestClientKeepsNamesOnFailedRefresh(t *testing.T) {
	svr := startServer(t)
	cln, err := Connect(Config{
		CommandAddr:     svr.Addr().String(),
		DataAddr:        "127.0.0.1:0",
		CommandTimeout:  100 * time.Millisecond,
		RefreshInterval: 10 * time.Millisecond,
	})
	require.NoError(t, err)
	defer cln.Close()

	require.NoError(t, svr.PublishTo(testFrame(1), cln.DataAddr().String()))
	_, err = cln.NextFrame()
	require.NoError(t, err)
	before := cln.Cache()
	require.Equal(t, 2, before.Len())

	// the server now sends an invalid model definition
	svr.SetModel(&model.ModelDefinition{Datasets: []model.Dataset{nil}})
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, svr.PublishTo(testFrame(2), cln.DataAddr().String()))
	f, err := cln.NextFrame()
	require.NoError(t, err)
	assert.Equal(t, uint32(2), f.FrameNumber)
	assert.Same(t, before, cln.Cache())
	name, _ := cln.RigidBodyName(7)
	assert.Equal(t, "Wand", name)
}

func TestClientPicksUpNewRigidBodies(t *testing.T) {
	svr := &server.Server{CommandAddr: "127.0.0.1:0"}
	require.NoError(t, svr.Start())
	defer svr.Stop()
	cln, err := Connect(Config{
		CommandAddr:     svr.Addr().String(),
		DataAddr:        "127.0.0.1:0",
		CommandTimeout:  100 * time.Millisecond,
		RefreshInterval: time.Hour,
	})
	require.NoError(t, err)
	defer cln.Close()

	// empty model
	require.NoError(t, svr.PublishTo(testFrame(1), cln.DataAddr().String()))
	_, err = cln.NextFrame()
	require.NoError(t, err)
	assert.Equal(t, 0, cln.Cache().Len())

	// rigid bodies are added, retried after the command timeout
	svr.SetModel(testModel())
	time.Sleep(150 * time.Millisecond)
	require.NoError(t, svr.PublishTo(testFrame(2), cln.DataAddr().String()))
	f, err := cln.NextFrame()
	require.NoError(t, err)
	assert.Equal(t, uint32(2), f.FrameNumber)
	name, ok := cln.RigidBodyName(3)
	assert.True(t, ok)
	assert.Equal(t, "Head", name)
}

func TestClientStartStop(t *testing.T) {
	svr := startServer(t)
	cln, err := Connect(Config{
		CommandAddr: svr.Addr().String(),
		DataAddr:    "127.0.0.1:0",
	})
	require.NoError(t, err)

	type received struct {
		frame *model.FrameOfData
		name  string
	}
	frames := make(chan received, 10)
	cln.Start(ConsumerFunc(func(f *model.FrameOfData, names *ModelCache) {
		n, _ := names.Name(f.RigidBodies[0].ID)
		frames <- received{f, n}
	}))

	require.NoError(t, svr.PublishTo(testFrame(10), cln.DataAddr().String()))
	select {
	case r := <-frames:
		assert.Equal(t, uint32(10), r.frame.FrameNumber)
		assert.Equal(t, "Head", r.name)
	case <-time.After(5 * time.Second):
		t.Fatal("no frame received")
	}

	stopped := make(chan struct{})
	go func() {
		cln.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("client not stopped")
	}
}

func TestClientRun(t *testing.T) {
	svr := startServer(t)
	cln, err := Connect(Config{
		CommandAddr: svr.Addr().String(),
		DataAddr:    "127.0.0.1:0",
	})
	require.NoError(t, err)

	count := 0
	done := make(chan error, 1)
	go func() {
		done <- cln.Run(ConsumerFunc(func(f *model.FrameOfData, names *ModelCache) {
			count++
			if count == 3 {
				cln.Close()
			}
		}))
	}()
	for i := uint32(0); i < 3; i++ {
		require.NoError(t, svr.PublishTo(testFrame(i), cln.DataAddr().String()))
	}
	select {
	case err := <-done:
		assert.NoError(t, err)
		assert.Equal(t, 3, count)
	case <-time.After(5 * time.Second):
		t.Fatal("run not terminated")
	}
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "Idle", Idle.String())
	assert.Equal(t, "Refreshing", Refreshing.String())
	assert.Equal(t, "Streaming", Streaming.String())
	assert.Equal(t, "State(7)", State(7).String())
	assert.Equal(t, "State(-1)", State(-1).String())
}
