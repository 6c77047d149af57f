package daemon

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRequestRoundTrips(t *testing.T) {
	raw, err := EncodeRequest("req-1", ActionStartService, StartServiceParams{Name: "web"})
	require.NoError(t, err)

	var req Request
	require.NoError(t, json.Unmarshal(raw, &req))
	assert.Equal(t, "req-1", req.ID)
	assert.Equal(t, ActionStartService, req.Action)

	var params StartServiceParams
	require.NoError(t, json.Unmarshal(req.Params, &params))
	assert.Equal(t, "web", params.Name)
}

func TestEncodeResponseAndError(t *testing.T) {
	ok, err := EncodeResponse("req-2", Success{OK: true})
	require.NoError(t, err)
	var resp Response
	require.NoError(t, json.Unmarshal(ok, &resp))
	assert.Equal(t, "req-2", resp.ID)
	assert.Empty(t, resp.Error)

	failed, err := EncodeError("req-3", "not_found")
	require.NoError(t, err)
	var errResp Response
	require.NoError(t, json.Unmarshal(failed, &errResp))
	assert.Equal(t, "not_found", errResp.Error)
}

func TestEncodeEventFrame(t *testing.T) {
	raw, err := EncodeEvent("ServiceStateChanged", map[string]string{"name": "web"})
	require.NoError(t, err)

	var ev PushedEvent
	require.NoError(t, json.Unmarshal(raw, &ev))
	assert.Equal(t, "ServiceStateChanged", ev.Event)
}
