package testutil

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/emailorg/mvmail/internal/config"
	"github.com/emailorg/mvmail/internal/record"
)

// Test credentials every fake accepts.
const (
	TestUsername = "testuser"
	TestPassword = "testpass"
	TestAccount  = "TESTACCT"
)

// Server is an in-process fake of the database server's socket protocol. It
// validates the login frame, then answers verb frames from its Store. With
// LenFramed set it advertises FRAMING=LEN at login and length-prefixes every
// response; otherwise responses are NUL-terminated as the legacy protocol
// expects.
type Server struct {
	Store     *Store
	Address   string
	LenFramed bool

	listener net.Listener
	mu       sync.Mutex
	accepted int
	active   []net.Conn
}

// NewServer starts a fake server on a random loopback port. The server stops
// when the test finishes.
func NewServer(t *testing.T, store *Store) *Server {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}

	s := &Server{
		Store:    store,
		Address:  listener.Addr().String(),
		listener: listener,
	}

	go s.serve()

	t.Cleanup(s.Close)

	return s
}

// Close stops accepting and drops every open connection.
func (s *Server) Close() {
	_ = s.listener.Close()
	s.DropConnections()
}

// Port returns the port the fake listens on.
func (s *Server) Port() int {
	_, portStr, _ := net.SplitHostPort(s.Address)
	port, _ := strconv.Atoi(portStr)
	return port
}

// Config returns a configuration pointing the socket transport at this fake.
func (s *Server) Config() *config.Config {
	return &config.Config{
		ServerHost:     "127.0.0.1",
		ServerPort:     s.Port(),
		WebSvcPort:     1,
		Username:       TestUsername,
		Password:       TestPassword,
		Account:        TestAccount,
		UseSocket:      true,
		DialTimeout:    2 * time.Second,
		RequestTimeout: 2 * time.Second,
	}
}

// AcceptedConns returns how many connections the fake has accepted, logins
// included.
func (s *Server) AcceptedConns() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accepted
}

// DropConnections severs every open connection, simulating a server-side
// failure. The listener keeps accepting, so clients can reconnect.
func (s *Server) DropConnections() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, conn := range s.active {
		_ = conn.Close()
	}
	s.active = nil
}

func (s *Server) serve() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		s.mu.Lock()
		s.accepted++
		s.active = append(s.active, conn)
		s.mu.Unlock()
		go s.handle(conn)
	}
}

func (s *Server) handle(conn net.Conn) {
	defer func() {
		_ = conn.Close()
	}()

	buf := make([]byte, 64*1024)

	n, err := conn.Read(buf)
	if err != nil {
		return
	}
	login := strings.Split(string(buf[:n]), record.FieldMark)
	if len(login) != 3 || login[0] != TestUsername || login[1] != TestPassword || login[2] != TestAccount {
		_, _ = conn.Write([]byte("ERROR invalid login"))
		return
	}
	greeting := "OK"
	if s.LenFramed {
		greeting = "OK FRAMING=LEN"
	}
	if _, err := conn.Write([]byte(greeting)); err != nil {
		return
	}

	for {
		n, err := conn.Read(buf)
		if err != nil {
			return
		}
		request := string(buf[:n])
		if request == "LOGOUT" {
			return
		}
		if err := s.reply(conn, s.dispatch(request)); err != nil {
			return
		}
	}
}

// dispatch parses one request frame. WRITE is the one verb whose last
// argument (the record data) legitimately contains field marks, so its tail
// is never split.
func (s *Server) dispatch(request string) string {
	verb, rest, ok := strings.Cut(request, record.FieldMark)

	switch verb {
	case "EXECUTE":
		if !ok {
			return "ERROR malformed execute"
		}
		return s.Store.Execute(rest)
	case "READ":
		args := strings.Split(rest, record.FieldMark)
		if !ok || len(args) != 2 {
			return "ERROR malformed read"
		}
		data, found := s.Store.Read(args[0], args[1])
		if !found {
			return "ERROR record not found"
		}
		return data
	case "WRITE":
		args := strings.SplitN(rest, record.FieldMark, 3)
		if !ok || len(args) != 3 {
			return "ERROR malformed write"
		}
		if !s.Store.Write(args[0], args[1], args[2]) {
			return "ERROR write failed"
		}
		return "OK"
	case "DELETE":
		args := strings.Split(rest, record.FieldMark)
		if !ok || len(args) != 2 {
			return "ERROR malformed delete"
		}
		if !s.Store.Delete(args[0], args[1]) {
			return "ERROR delete failed"
		}
		return "OK"
	case "SELECT":
		args := strings.Split(rest, record.FieldMark)
		if !ok || len(args) < 1 || len(args) > 2 {
			return "ERROR malformed select"
		}
		query := ""
		if len(args) == 2 {
			query = args[1]
		}
		ids := s.Store.Select(args[0], query)
		return strings.Join(ids, record.ValueMark)
	default:
		return "ERROR unknown verb " + verb
	}
}

func (s *Server) reply(conn net.Conn, payload string) error {
	if s.LenFramed {
		_, err := conn.Write([]byte(fmt.Sprintf("%010d", len(payload)) + payload))
		return err
	}
	_, err := conn.Write([]byte(payload + "\x00"))
	return err
}
