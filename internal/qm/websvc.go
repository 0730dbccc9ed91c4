package qm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/emailorg/mvmail/internal/config"
)

const transportWebSvc = "websvc"

// ServiceTransport drives the HTTP/JSON bridging service. Every operation is
// a single POST carrying the credentials, so there is no session state and
// the transport is safe for concurrent use.
type ServiceTransport struct {
	endpoint string
	username string
	password string
	account  string
	client   *http.Client
	logger   zerolog.Logger
}

// NewServiceTransport builds a transport for the bridge at cfg.WebSvcURL().
// No connection is made until the first operation.
func NewServiceTransport(cfg *config.Config, logger zerolog.Logger) *ServiceTransport {
	return &ServiceTransport{
		endpoint: cfg.WebSvcURL(),
		username: cfg.Username,
		password: cfg.Password,
		account:  cfg.Account,
		client:   &http.Client{Timeout: cfg.RequestTimeout},
		logger:   logger,
	}
}

type websvcRequest struct {
	Action   string `json:"action"`
	Command  string `json:"command,omitempty"`
	File     string `json:"file,omitempty"`
	ID       string `json:"id,omitempty"`
	Record   string `json:"record,omitempty"`
	Query    string `json:"query,omitempty"`
	Account  string `json:"account"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type websvcResponse struct {
	Result  string   `json:"result"`
	Record  string   `json:"record"`
	Success bool     `json:"success"`
	IDs     []string `json:"ids"`
}

func (t *ServiceTransport) Execute(ctx context.Context, command string) (string, error) {
	resp, err := t.post(ctx, websvcRequest{Action: "execute", Command: command})
	observe(transportWebSvc, "execute", err)
	if err != nil {
		return "", err
	}
	return resp.Result, nil
}

// ReadRecord maps an empty record in the response to ErrNotFound; the bridge
// answers missing and empty records identically.
func (t *ServiceTransport) ReadRecord(ctx context.Context, file, id string) (string, error) {
	resp, err := t.post(ctx, websvcRequest{Action: "read", File: file, ID: id})
	if err == nil && resp.Record == "" {
		err = ErrNotFound
	}
	observe(transportWebSvc, "read", err)
	if err != nil {
		return "", err
	}
	return resp.Record, nil
}

func (t *ServiceTransport) WriteRecord(ctx context.Context, file, id, data string) error {
	resp, err := t.post(ctx, websvcRequest{Action: "write", File: file, ID: id, Record: data})
	if err == nil && !resp.Success {
		err = &ServerError{Op: "write", Response: "success=false"}
	}
	observe(transportWebSvc, "write", err)
	return err
}

func (t *ServiceTransport) DeleteRecord(ctx context.Context, file, id string) error {
	resp, err := t.post(ctx, websvcRequest{Action: "delete", File: file, ID: id})
	if err == nil && !resp.Success {
		err = &ServerError{Op: "delete", Response: "success=false"}
	}
	observe(transportWebSvc, "delete", err)
	return err
}

func (t *ServiceTransport) SelectIDs(ctx context.Context, file, query string) ([]string, error) {
	resp, err := t.post(ctx, websvcRequest{Action: "select", File: file, Query: query})
	observe(transportWebSvc, "select", err)
	if err != nil {
		return nil, err
	}
	if resp.IDs == nil {
		return []string{}, nil
	}
	return resp.IDs, nil
}

// Close satisfies Transport; the service holds no connection state.
func (t *ServiceTransport) Close() error {
	return nil
}

func (t *ServiceTransport) post(ctx context.Context, req websvcRequest) (*websvcResponse, error) {
	req.Account = t.account
	req.Username = t.username
	req.Password = t.password

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s request: %w", req.Action, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build %s request: %w", req.Action, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to post %s: %w", req.Action, err)
	}
	defer func() {
		_ = httpResp.Body.Close()
	}()

	if httpResp.StatusCode != http.StatusOK {
		text, _ := io.ReadAll(io.LimitReader(httpResp.Body, 512))
		return nil, &ServerError{
			Op:       req.Action,
			Response: fmt.Sprintf("status %d: %s", httpResp.StatusCode, strings.TrimSpace(string(text))),
		}
	}

	var resp websvcResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, &ProtocolError{Op: req.Action, Detail: fmt.Sprintf("undecodable response: %v", err)}
	}
	return &resp, nil
}
