package testutil

import (
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/emailorg/mvmail/internal/config"
)

// WebSvc is an in-process fake of the HTTP/JSON bridging service, backed by
// the same Store type as the socket fake.
type WebSvc struct {
	Store *Store

	server *httptest.Server

	mu         sync.Mutex
	failStatus int
}

type websvcRequest struct {
	Action   string `json:"action"`
	Command  string `json:"command"`
	File     string `json:"file"`
	ID       string `json:"id"`
	Record   string `json:"record"`
	Query    string `json:"query"`
	Account  string `json:"account"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// NewWebSvc starts the fake bridge. It stops when the test finishes.
func NewWebSvc(t *testing.T, store *Store) *WebSvc {
	t.Helper()

	w := &WebSvc{Store: store}
	w.server = httptest.NewServer(http.HandlerFunc(w.handle))
	t.Cleanup(w.server.Close)
	return w
}

// Port returns the port the fake listens on.
func (w *WebSvc) Port() int {
	addr := w.server.Listener.Addr().String()
	_, portStr, _ := net.SplitHostPort(addr)
	port, _ := strconv.Atoi(portStr)
	return port
}

// Config returns a configuration pointing the service transport at this fake.
func (w *WebSvc) Config() *config.Config {
	return &config.Config{
		ServerHost:     "127.0.0.1",
		ServerPort:     1,
		WebSvcPort:     w.Port(),
		Username:       TestUsername,
		Password:       TestPassword,
		Account:        TestAccount,
		UseWebSvc:      true,
		DialTimeout:    2 * time.Second,
		RequestTimeout: 2 * time.Second,
	}
}

// FailWith makes every following request answer with the given HTTP status.
// Zero restores normal handling.
func (w *WebSvc) FailWith(status int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.failStatus = status
}

func (w *WebSvc) handle(rw http.ResponseWriter, r *http.Request) {
	w.mu.Lock()
	failStatus := w.failStatus
	w.mu.Unlock()
	if failStatus != 0 {
		http.Error(rw, "injected failure", failStatus)
		return
	}

	if r.Method != http.MethodPost {
		http.Error(rw, "POST only", http.StatusMethodNotAllowed)
		return
	}

	var req websvcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(rw, "bad request body", http.StatusBadRequest)
		return
	}
	if req.Username != TestUsername || req.Password != TestPassword || req.Account != TestAccount {
		http.Error(rw, "bad credentials", http.StatusUnauthorized)
		return
	}

	out := make(map[string]any)
	switch req.Action {
	case "execute":
		out["result"] = w.Store.Execute(req.Command)
	case "read":
		data, _ := w.Store.Read(req.File, req.ID)
		out["record"] = data
	case "write":
		out["success"] = w.Store.Write(req.File, req.ID, req.Record)
	case "delete":
		out["success"] = w.Store.Delete(req.File, req.ID)
	case "select":
		out["ids"] = w.Store.Select(req.File, req.Query)
	default:
		http.Error(rw, "unknown action "+req.Action, http.StatusBadRequest)
		return
	}

	rw.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(rw).Encode(out)
}
