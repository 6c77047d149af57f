package daemon

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cuemby/harness/pkg/herrors"
	"github.com/cuemby/harness/pkg/log"
	"github.com/cuemby/harness/pkg/types"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1 << 20 // 1MB
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

var serverLogger = log.WithComponent("daemon")

// Server is the daemon's websocket transport: it accepts connections,
// dispatches each Request to Backend/ActionRegistry by Action, and pushes
// Backend events to subscribed connections.
type Server struct {
	backend Backend
	events  EventSource
	actions *ActionRegistry

	mu    sync.Mutex
	conns map[*connection]struct{}
}

// NewServer builds a Server over backend, events, and an action registry
// (callers register host actions on actions before or after calling this —
// the registry is safe for concurrent use).
func NewServer(backend Backend, events EventSource, actions *ActionRegistry) *Server {
	return &Server{
		backend: backend,
		events:  events,
		actions: actions,
		conns:   make(map[*connection]struct{}),
	}
}

// ServeHTTP upgrades the request to a websocket connection and starts its
// read/write pumps, following ehrlich-b-cinch's internal/server/ws.go
// upgrade-then-spawn-pumps shape.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		serverLogger.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	c := &connection{
		server: s,
		conn:   conn,
		send:   make(chan []byte, 256),
		subs:   make(map[string]func()),
	}

	s.mu.Lock()
	s.conns[c] = struct{}{}
	s.mu.Unlock()

	go c.writePump()
	go c.readPump()
}

// connection is one client's websocket session: its outbound queue and its
// per-kind event subscriptions (so Unsubscribe/disconnect can tear down
// exactly the registry subscriptions this connection owns).
type connection struct {
	server *Server
	conn   *websocket.Conn
	send   chan []byte

	subMu sync.Mutex
	subs  map[string]func() // subscription id -> teardown
}

func (c *connection) readPump() {
	defer func() {
		c.teardownSubscriptions()
		c.server.mu.Lock()
		delete(c.server.conns, c)
		c.server.mu.Unlock()
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				serverLogger.Warn().Err(err).Msg("websocket read error")
			}
			return
		}
		c.handleMessage(data)
	}
}

func (c *connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				serverLogger.Warn().Err(err).Msg("websocket write error")
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *connection) handleMessage(data []byte) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		serverLogger.Warn().Err(err).Msg("failed to decode request")
		return
	}

	ctx := context.Background()
	resp, err := c.dispatch(ctx, req)
	var frame []byte
	var encErr error
	if err != nil {
		frame, encErr = EncodeError(req.ID, err.Error())
	} else {
		frame, encErr = EncodeResponse(req.ID, resp)
	}
	if encErr != nil {
		serverLogger.Error().Err(encErr).Msg("failed to encode response")
		return
	}
	c.enqueue(frame)
}

func (c *connection) dispatch(ctx context.Context, req Request) (any, error) {
	switch req.Action {
	case ActionStartService:
		var p StartServiceParams
		if err := json.Unmarshal(req.Params, &p); err != nil {
			return nil, err
		}
		entry, netInfo, err := c.server.backend.StartService(ctx, p.Name, p.Config)
		if err != nil {
			return nil, err
		}
		_ = entry
		return ServiceStartedResult{Name: p.Name, NetworkInfo: netInfo}, nil

	case ActionStopService:
		var p StopServiceParams
		if err := json.Unmarshal(req.Params, &p); err != nil {
			return nil, err
		}
		if err := c.server.backend.StopService(ctx, p.Name, p.Force); err != nil {
			return nil, err
		}
		return Success{OK: true}, nil

	case ActionGetServiceStatus:
		var p GetServiceStatusParams
		if err := json.Unmarshal(req.Params, &p); err != nil {
			return nil, err
		}
		entry, err := c.server.backend.GetServiceStatus(ctx, p.Name)
		if err != nil {
			return nil, err
		}
		return ServiceStatusResult{Status: viewFromEntry(entry)}, nil

	case ActionListServices:
		entries, err := c.server.backend.ListServices(ctx)
		if err != nil {
			return nil, err
		}
		out := make(map[string]string, len(entries))
		for name, e := range entries {
			out[name] = string(e.State)
		}
		return ServiceListResult{Services: out}, nil

	case ActionListServicesDetail:
		entries, err := c.server.backend.ListServices(ctx)
		if err != nil {
			return nil, err
		}
		views := make([]ServiceStatusView, 0, len(entries))
		for _, e := range entries {
			views = append(views, viewFromEntry(e))
		}
		return ServiceListDetailedResult{Services: views}, nil

	case ActionRunHealthChecks:
		var p RunHealthChecksParams
		if err := json.Unmarshal(req.Params, &p); err != nil {
			return nil, err
		}
		results, err := c.server.backend.RunHealthChecks(ctx, p.Name)
		if err != nil {
			return nil, err
		}
		out := make(map[string]HealthResultView, len(results))
		for name, r := range results {
			out[name] = HealthResultView{Healthy: r.Healthy, Message: r.Message}
		}
		return HealthCheckResultsResult{Results: out}, nil

	case ActionShutdown:
		if err := c.server.backend.Shutdown(ctx); err != nil {
			return nil, err
		}
		return Success{OK: true}, nil

	case ActionListActions:
		return ActionListResult{Actions: c.server.actions.List()}, nil

	case ActionInvokeAction:
		var p InvokeActionParams
		if err := json.Unmarshal(req.Params, &p); err != nil {
			return nil, err
		}
		result, err := c.server.actions.Invoke(p.Name, p.Params)
		if err != nil {
			return nil, err
		}
		return ActionResultResult{Result: result}, nil

	case ActionSubscribe:
		var p SubscribeParams
		if err := json.Unmarshal(req.Params, &p); err != nil {
			return nil, err
		}
		c.subscribe(p.Events)
		return Success{OK: true}, nil

	case ActionUnsubscribe:
		var p UnsubscribeParams
		if err := json.Unmarshal(req.Params, &p); err != nil {
			return nil, err
		}
		c.unsubscribe(p.Events)
		return Success{OK: true}, nil

	default:
		return nil, herrors.New(herrors.Unsupported, "unknown action: "+string(req.Action))
	}
}

func (c *connection) subscribe(events []string) {
	kinds := make([]types.EventKind, 0, len(events))
	for _, e := range events {
		kinds = append(kinds, types.EventKind(e))
	}

	id, ch := c.server.events.Subscribe(kinds...)

	go func() {
		for event := range ch {
			frame, err := EncodeEvent(string(event.Kind), event)
			if err != nil {
				continue
			}
			c.enqueue(frame)
		}
	}()

	c.subMu.Lock()
	c.subs[id] = func() { c.server.events.Unsubscribe(id) }
	c.subMu.Unlock()
}

// unsubscribe tears down every subscription the connection currently
// holds, whatever kinds events names. Kinds that events does not name are
// not re-subscribed: the connection receives no further events until it
// subscribes again.
func (c *connection) unsubscribe(events []string) {
	c.teardownSubscriptions()
}

func (c *connection) teardownSubscriptions() {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	for _, teardown := range c.subs {
		teardown()
	}
	c.subs = make(map[string]func())
}

func (c *connection) enqueue(frame []byte) {
	select {
	case c.send <- frame:
	default:
		serverLogger.Warn().Msg("connection send buffer full, dropping frame")
	}
}
