package daemon

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/cuemby/harness/pkg/herrors"
	"github.com/cuemby/harness/pkg/log"
)

var clientLogger = log.WithComponent("daemon.client")

// EventHandler receives pushed events for kinds the client has subscribed
// to. It is called from the client's read loop goroutine.
type EventHandler func(kind string, data json.RawMessage)

// Client is a thin wrapper around a websocket connection to the daemon,
// following cuemby-warren's pkg/client/client.go connect/request/typed-
// response-unwrap shape, adapted to this protocol's JSON request/response
// envelope instead of generated gRPC stubs.
type Client struct {
	conn *websocket.Conn

	mu      sync.Mutex
	pending map[string]chan Response
	closed  bool

	onEvent EventHandler
}

// Dial connects to the daemon at addr (a ws:// or wss:// URL) and starts
// its read loop.
func Dial(addr string, onEvent EventHandler) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.Dial(addr, nil)
	if err != nil {
		return nil, herrors.Wrap(herrors.Transport, "dial daemon", err)
	}

	c := &Client{
		conn:    conn,
		pending: make(map[string]chan Response),
		onEvent: onEvent,
	}
	go c.readLoop()
	return c, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	c.mu.Lock()
	c.closed = true
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
	c.mu.Unlock()
	return c.conn.Close()
}

func (c *Client) readLoop() {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			for id, ch := range c.pending {
				close(ch)
				delete(c.pending, id)
			}
			c.mu.Unlock()
			return
		}
		c.handleFrame(data)
	}
}

func (c *Client) handleFrame(data []byte) {
	// a frame is either a Response (has "id") or a PushedEvent (has "event")
	var probe struct {
		ID    string `json:"id"`
		Event string `json:"event"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		clientLogger.Warn().Err(err).Msg("failed to decode frame")
		return
	}

	if probe.Event != "" {
		var ev PushedEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return
		}
		if c.onEvent != nil {
			c.onEvent(ev.Event, ev.Data)
		}
		return
	}

	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return
	}

	c.mu.Lock()
	ch, ok := c.pending[resp.ID]
	if ok {
		delete(c.pending, resp.ID)
	}
	c.mu.Unlock()
	if ok {
		ch <- resp
	}
}

// Request sends action with params and blocks for the matching response,
// unmarshalling its Data into out (pass nil to discard it).
func (c *Client) Request(action Action, params any, out any) error {
	id := uuid.NewString()
	frame, err := EncodeRequest(id, action, params)
	if err != nil {
		return err
	}

	ch := make(chan Response, 1)
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return herrors.New(herrors.Transport, "client closed")
	}
	c.pending[id] = ch
	c.mu.Unlock()

	if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return herrors.Wrap(herrors.Transport, "send request", err)
	}

	select {
	case resp, ok := <-ch:
		if !ok {
			return herrors.New(herrors.Transport, "connection closed while waiting for response")
		}
		if resp.Error != "" {
			return fmt.Errorf("daemon: %s", resp.Error)
		}
		if out != nil && len(resp.Data) > 0 {
			if err := json.Unmarshal(resp.Data, out); err != nil {
				return herrors.Wrap(herrors.Transport, "unmarshal response", err)
			}
		}
		return nil
	case <-time.After(30 * time.Second):
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return herrors.New(herrors.Transport, "request timed out")
	}
}

// StartService starts name with config and returns its assigned network info.
func (c *Client) StartService(name string, config json.RawMessage) (ServiceStartedResult, error) {
	var out ServiceStartedResult
	err := c.Request(ActionStartService, StartServiceParams{Name: name, Config: config}, &out)
	return out, err
}

// StopService stops name.
func (c *Client) StopService(name string, force bool) error {
	return c.Request(ActionStopService, StopServiceParams{Name: name, Force: force}, nil)
}

// GetServiceStatus fetches one service's current status.
func (c *Client) GetServiceStatus(name string) (ServiceStatusView, error) {
	var out ServiceStatusResult
	err := c.Request(ActionGetServiceStatus, GetServiceStatusParams{Name: name}, &out)
	return out.Status, err
}

// ListServices fetches every service's name and state.
func (c *Client) ListServices() (map[string]string, error) {
	var out ServiceListResult
	err := c.Request(ActionListServices, struct{}{}, &out)
	return out.Services, err
}

// ListServicesDetailed fetches every service's full status view.
func (c *Client) ListServicesDetailed() ([]ServiceStatusView, error) {
	var out ServiceListDetailedResult
	err := c.Request(ActionListServicesDetail, struct{}{}, &out)
	return out.Services, err
}

// RunHealthChecks fetches the last recorded health result for name (all
// services if name is empty).
func (c *Client) RunHealthChecks(name string) (map[string]HealthResultView, error) {
	var out HealthCheckResultsResult
	err := c.Request(ActionRunHealthChecks, RunHealthChecksParams{Name: name}, &out)
	return out.Results, err
}

// Shutdown asks the daemon to stop every running service and exit.
func (c *Client) Shutdown() error {
	return c.Request(ActionShutdown, struct{}{}, nil)
}

// ListActions fetches the host-registered action catalogue.
func (c *Client) ListActions() ([]ActionInfo, error) {
	var out ActionListResult
	err := c.Request(ActionListActions, struct{}{}, &out)
	return out.Actions, err
}

// Subscribe asks the daemon to push events of the given kinds (empty = all).
func (c *Client) Subscribe(events ...string) error {
	return c.Request(ActionSubscribe, SubscribeParams{Events: events}, nil)
}

// Unsubscribe asks the daemon to stop pushing events to this connection.
func (c *Client) Unsubscribe(events ...string) error {
	return c.Request(ActionUnsubscribe, UnsubscribeParams{Events: events}, nil)
}

// InvokeAction calls a host-registered action by name.
func (c *Client) InvokeAction(name string, params json.RawMessage) (json.RawMessage, error) {
	var out ActionResultResult
	err := c.Request(ActionInvokeAction, InvokeActionParams{Name: name, Params: params}, &out)
	return out.Result, err
}
