package peersvc

import (
	"context"
	"fmt"
	"net"

	"github.com/Snider/Fabric/internal/fablog"
	"github.com/Snider/Fabric/internal/ferr"
	"github.com/Snider/Fabric/internal/wire"
)

// DefaultMaxFrameBytes bounds a single envelope's wire size.
const DefaultMaxFrameBytes = 16 << 20 // 16 MiB

// DefaultConnectionCap is the soft per-process accepted-connection cap (§5).
const DefaultConnectionCap = 256

// Server owns the TCP accept loop: one goroutine per accepted connection,
// each reading exactly one request envelope, dispatching it, writing
// exactly one response, then closing (§4.1's one-request-one-response
// connection model).
type Server struct {
	peer         *Peer
	listener     net.Listener
	log          *fablog.Logger
	connSlots    chan struct{}
	maxFrameSize uint32
}

// NewServer wraps peer with a TCP listener bound to addr.
func NewServer(peer *Peer, addr string, connectionCap int) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	if connectionCap <= 0 {
		connectionCap = DefaultConnectionCap
	}
	return &Server{
		peer:         peer,
		listener:     ln,
		log:          peer.log,
		connSlots:    make(chan struct{}, connectionCap),
		maxFrameSize: DefaultMaxFrameBytes,
	}, nil
}

// Addr reports the listener's bound address (useful when addr was ":0").
func (s *Server) Addr() string { return s.listener.Addr().String() }

// Serve runs the accept loop until ctx is cancelled or the listener errors.
func (s *Server) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.listener.Close()
	}()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return err
			}
		}
		select {
		case s.connSlots <- struct{}{}:
			go s.handleConn(ctx, conn)
		default:
			conn.Close() // over the soft connection cap
		}
	}
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer func() {
		conn.Close()
		<-s.connSlots
	}()

	req, err := wire.ReadEnvelope(conn, s.maxFrameSize)
	if err != nil {
		return
	}
	ok, err := wire.IsCompatibleVersion(req.Version)
	if err != nil || !ok {
		_ = wire.WriteEnvelope(conn, wire.NewErrorResponse(req, string(ferr.CodeBadRequest),
			fmt.Sprintf("unsupported protocol version %q (this peer speaks %s)", req.Version, wire.ProtocolVersion)))
		return
	}
	resp := s.peer.Dispatch(ctx, req)
	_ = wire.WriteEnvelope(conn, resp)
}

// Close stops accepting new connections immediately.
func (s *Server) Close() error { return s.listener.Close() }
