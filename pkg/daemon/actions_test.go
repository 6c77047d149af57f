package daemon

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndInvokeAction(t *testing.T) {
	r := NewActionRegistry()
	err := r.Register(ActionInfo{Name: "ping"}, func(params json.RawMessage) (json.RawMessage, error) {
		return json.Marshal(map[string]string{"reply": "pong"})
	})
	require.NoError(t, err)

	result, err := r.Invoke("ping", nil)
	require.NoError(t, err)

	var out map[string]string
	require.NoError(t, json.Unmarshal(result, &out))
	assert.Equal(t, "pong", out["reply"])
}

func TestInvokeUnknownActionErrors(t *testing.T) {
	r := NewActionRegistry()
	_, err := r.Invoke("ghost", nil)
	assert.Error(t, err)
}

func TestRegisterDuplicateNameFails(t *testing.T) {
	r := NewActionRegistry()
	fn := func(params json.RawMessage) (json.RawMessage, error) { return nil, nil }
	require.NoError(t, r.Register(ActionInfo{Name: "ping"}, fn))
	assert.Error(t, r.Register(ActionInfo{Name: "ping"}, fn))
}

func TestListActionsReturnsAllRegistered(t *testing.T) {
	r := NewActionRegistry()
	fn := func(params json.RawMessage) (json.RawMessage, error) { return nil, nil }
	require.NoError(t, r.Register(ActionInfo{Name: "ping"}, fn))
	require.NoError(t, r.Register(ActionInfo{Name: "pong"}, fn))

	list := r.List()
	assert.Len(t, list, 2)
}
