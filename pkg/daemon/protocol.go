// Package daemon implements the request/response + event-push JSON
// protocol the daemon exposes over a bidirectional message stream (spec
// §4.J). The envelope and read/write-pump shape is grounded on
// ehrlich-b-cinch's internal/protocol/message.go and
// internal/server/ws.go; the method-per-request-type dispatch and the
// client's connect/request-with-correlation-id/typed-response-unwrap shape
// follow cuemby-warren's pkg/api/server.go and pkg/client/client.go.
package daemon

import (
	"encoding/json"
	"fmt"
)

// Action names the daemon understands. Each maps 1:1 to a request payload
// type below.
type Action string

const (
	ActionStartService       Action = "StartService"
	ActionStopService        Action = "StopService"
	ActionGetServiceStatus   Action = "GetServiceStatus"
	ActionListServices       Action = "ListServices"
	ActionListServicesDetail Action = "ListServicesDetailed"
	ActionRunHealthChecks    Action = "RunHealthChecks"
	ActionShutdown           Action = "Shutdown"
	ActionListActions        Action = "ListActions"
	ActionInvokeAction       Action = "InvokeAction"
	ActionSubscribe          Action = "Subscribe"
	ActionUnsubscribe        Action = "Unsubscribe"
)

// Request is the envelope every client->daemon message is framed in. ID is
// a client-chosen correlation id echoed back on the matching Response.
type Request struct {
	ID     string          `json:"id"`
	Action Action          `json:"action"`
	Params json.RawMessage `json:"params,omitempty"`
}

// Response is the envelope every daemon->client reply is framed in,
// correlated to its Request by ID. Exactly one of Data/Error is set.
type Response struct {
	ID    string          `json:"id"`
	Data  json.RawMessage `json:"data,omitempty"`
	Error string          `json:"error,omitempty"`
}

// PushedEvent is an unsolicited daemon->client message — the registry or
// health monitor produced an Event and this connection is subscribed to
// its kind.
type PushedEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// EncodeRequest marshals a request with the given action/params/id.
func EncodeRequest(id string, action Action, params any) ([]byte, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("marshal params: %w", err)
	}
	return json.Marshal(Request{ID: id, Action: action, Params: raw})
}

// EncodeResponse marshals a successful response carrying data.
func EncodeResponse(id string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal response data: %w", err)
	}
	return json.Marshal(Response{ID: id, Data: raw})
}

// EncodeError marshals an error response.
func EncodeError(id string, message string) ([]byte, error) {
	return json.Marshal(Response{ID: id, Error: message})
}

// EncodeEvent marshals a pushed event frame.
func EncodeEvent(kind string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal event data: %w", err)
	}
	return json.Marshal(PushedEvent{Event: kind, Data: raw})
}

// --- Request payloads (spec §4.J) ---

// StartServiceParams requests the scheduler start name using config — the
// same config shape pkg/config parses from a stack file.
type StartServiceParams struct {
	Name   string          `json:"name"`
	Config json.RawMessage `json:"config"`
}

// StopServiceParams requests name be stopped.
type StopServiceParams struct {
	Name  string `json:"name"`
	Force bool   `json:"force,omitempty"`
}

// GetServiceStatusParams requests one service's current status.
type GetServiceStatusParams struct {
	Name string `json:"name"`
}

// RunHealthChecksParams optionally scopes a RunHealthChecks request to one
// service; an empty Name covers every registered service. The response
// carries each service's most recently recorded probe result; no new probe
// is run.
type RunHealthChecksParams struct {
	Name string `json:"name,omitempty"`
}

// InvokeActionParams calls a host-registered action by name.
type InvokeActionParams struct {
	Name   string          `json:"name"`
	Params json.RawMessage `json:"params,omitempty"`
}

// SubscribeParams lists the event kinds a connection wants pushed to it.
// An empty Events list subscribes to every kind.
type SubscribeParams struct {
	Events []string `json:"events,omitempty"`
}

// UnsubscribeParams names event kinds to unsubscribe from. The server
// removes every subscription of the connection, not only the named kinds.
type UnsubscribeParams struct {
	Events []string `json:"events,omitempty"`
}

// --- Response payloads ---

// Success is the response data for calls with no meaningful result beyond
// having succeeded (e.g. Shutdown).
type Success struct {
	OK bool `json:"ok"`
}

// ServiceStartedResult is returned once a StartService call's unit has
// settled into Running, along with the network info discovery assigned it.
type ServiceStartedResult struct {
	Name        string            `json:"name"`
	NetworkInfo map[string]string `json:"network_info,omitempty"`
}

// ServiceStatusResult carries one service's detailed status.
type ServiceStatusResult struct {
	Status ServiceStatusView `json:"status"`
}

// ServiceListResult is the response data for ListServices: name -> state.
type ServiceListResult struct {
	Services map[string]string `json:"services"`
}

// ServiceListDetailedResult is the response data for ListServicesDetailed.
type ServiceListDetailedResult struct {
	Services []ServiceStatusView `json:"services"`
}

// ServiceStatusView is the wire projection of a registry ServiceEntry.
type ServiceStatusView struct {
	Name      string `json:"name"`
	State     string `json:"state"`
	Healthy   bool   `json:"healthy"`
	Message   string `json:"message,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

// HealthCheckResultsResult is the response data for RunHealthChecks.
type HealthCheckResultsResult struct {
	Results map[string]HealthResultView `json:"results"`
}

// HealthResultView is the wire projection of a health.Result.
type HealthResultView struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// ActionResultResult wraps an action's own JSON-shaped return value.
type ActionResultResult struct {
	Result json.RawMessage `json:"result"`
}

// ActionListResult is the response data for ListActions.
type ActionListResult struct {
	Actions []ActionInfo `json:"actions"`
}
