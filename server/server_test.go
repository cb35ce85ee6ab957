package server

import (
	"net"
	"testing"
	"time"

	_ "github.com/mdzio/go-lib/testutil"
	"github.com/mdzio/go-natnet/model"
	"github.com/mdzio/go-natnet/wire"
)

func request(t *testing.T, addr net.Addr, kind model.MessageKind, payload string) (wire.Header, interface{}) {
	t.Helper()
	conn, err := net.ListenPacket("udp4", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	cmd, err := wire.EncodeCommand(kind, payload)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := conn.WriteTo(cmd, addr); err != nil {
		t.Fatal(err)
	}
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	buf := make([]byte, 65536)
	n, _, err := conn.ReadFrom(buf)
	if err != nil {
		t.Fatal(err)
	}
	h, body, err := wire.Decode(buf[:n])
	if err != nil {
		t.Fatal(err)
	}
	return h, body
}

func TestServer(t *testing.T) {
	serr := make(chan error, 1)
	svr := &Server{
		CommandAddr: "127.0.0.1:0",
		AppName:     "Simulator",
		ServeErr:    serr,
	}
	def := &model.ModelDefinition{Datasets: []model.Dataset{
		&model.RigidBodyDefinition{Name: "Head", ID: 3, Markers: []model.MarkerDescriptor{}},
	}}
	svr.SetModel(def)
	if err := svr.Start(); err != nil {
		t.Fatal(err)
	}
	defer svr.Stop()

	// model definition
	h, body := request(t, svr.Addr(), model.RequestModelDef, "")
	if h.ID != model.ModelDef {
		t.Fatalf("unexpected reply: %s", h.ID)
	}
	got, ok := body.(*model.ModelDefinition)
	if !ok || len(got.Datasets) != 1 {
		t.Fatalf("unexpected model definition: %#v", body)
	}
	if rb := got.RigidBodies()[0]; rb.Name != "Head" || rb.ID != 3 {
		t.Errorf("unexpected rigid body: %#v", rb)
	}

	// server info
	h, _ = request(t, svr.Addr(), model.Connect, "Ping")
	if h.ID != model.ServerInfo {
		t.Fatalf("unexpected reply: %s", h.ID)
	}

	// expect no serve error
	select {
	case err := <-serr:
		t.Error(err)
	default:
	}
}

func TestServerPublish(t *testing.T) {
	svr := &Server{CommandAddr: "127.0.0.1:0"}
	if err := svr.Start(); err != nil {
		t.Fatal(err)
	}
	defer svr.Stop()

	conn, err := net.ListenPacket("udp4", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	svr.DataAddr = conn.LocalAddr().String()

	f := &model.FrameOfData{
		FrameNumber:        12,
		LabelledMarkerSets: []model.MarkerSet{},
		UnlabelledMarkers:  []model.Vec3{},
		RigidBodies:        []model.RigidBodyState{{ID: 3, TrackingValid: true}},
	}
	if err := svr.Publish(f); err != nil {
		t.Fatal(err)
	}
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	buf := make([]byte, 65536)
	n, _, err := conn.ReadFrom(buf)
	if err != nil {
		t.Fatal(err)
	}
	h, body, err := wire.Decode(buf[:n])
	if err != nil {
		t.Fatal(err)
	}
	if h.ID != model.FrameOfDataMessage {
		t.Fatalf("unexpected message: %s", h.ID)
	}
	got := body.(*model.FrameOfData)
	if got.FrameNumber != 12 || len(got.RigidBodies) != 1 || !got.RigidBodies[0].TrackingValid {
		t.Errorf("unexpected frame: %#v", got)
	}
}
