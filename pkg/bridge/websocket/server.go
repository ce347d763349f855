package websocket

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"

	"github.com/golang/glog"
	"github.com/gorilla/mux"
	"github.com/rs/xid"
	"golang.org/x/net/websocket"

	fx "github.com/robotalks/uartcon/pkg/framework"
	"github.com/robotalks/uartcon/pkg/sim"
)

// Device is the console served to websocket clients.
type Device interface {
	Inject(context.Context, []byte) error
	Attach(io.Writer) (detach func())
	Stats() sim.Stats
}

// Paths served by Server.
const (
	PathConsole = "/console"
	PathStats   = "/stats"
)

// Server forwards received messages to the device receive line and
// transmitted bytes back to every connected client.
type Server struct {
	Addr   string
	Device Device
}

// Handler returns the routes of the server.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Handle(PathConsole, websocket.Handler(s.serveConn))
	r.HandleFunc(PathStats, s.serveStats).Methods(http.MethodGet)
	return r
}

func (s *Server) serveStats(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.Device.Stats()); err != nil {
		glog.Warningf("websocket: encode stats: %v", err)
	}
}

func (s *Server) serveConn(conn *websocket.Conn) {
	defer conn.Close()
	req := conn.Request()
	session := xid.New().String()
	glog.Infof("websocket: session %s from %s started", session, req.RemoteAddr)
	defer glog.Infof("websocket: session %s closed", session)

	rw := New(conn)
	detach := s.Device.Attach(rw)
	defer detach()

	ctx := req.Context()
	for {
		pkt, err := rw.ReadPacket()
		if err != nil {
			if err != io.EOF {
				glog.Warningf("websocket: session %s: %v", session, err)
			}
			return
		}
		glog.V(2).Infof("websocket: session %s rx %d bytes", session, len(pkt))
		if err := s.Device.Inject(ctx, pkt); err != nil {
			glog.Warningf("websocket: inject: %v", err)
			return
		}
	}
}

// Run implements Runnable. It listens on Addr until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return err
	}
	glog.Infof("websocket: listening on %s", ln.Addr())
	hs := &http.Server{Handler: s.Handler()}
	return fx.RunWithCloser(ctx, hs, func() error {
		return hs.Serve(ln)
	})
}
