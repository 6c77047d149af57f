package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadValidStack(t *testing.T) {
	data := []byte(`
version: "1.0"
name: example
networks:
  lan0:
    type: lan
services:
  db:
    type: docker
    network: lan0
    image: postgres:16
  web:
    type: process
    network: lan0
    command: ["./web"]
    dependencies: ["db"]
`)

	stack, err := Load(data)
	require.NoError(t, err)
	assert.Equal(t, "example", stack.Name)
	assert.Equal(t, NetworkLAN, stack.Networks["lan0"].Type)
	assert.Equal(t, []string{"db"}, stack.Services["web"].Dependencies)
}

func TestLoadRejectsUnknownTopLevelKey(t *testing.T) {
	data := []byte(`
version: "1.0"
bogus: true
`)
	_, err := Load(data)
	assert.Error(t, err)
}

func TestLoadRejectsUnknownSchemaVersion(t *testing.T) {
	data := []byte(`version: "2.0"`)
	_, err := Load(data)
	assert.Error(t, err)
}

func TestLoadRejectsUnknownServiceType(t *testing.T) {
	data := []byte(`
version: "1.0"
services:
  web:
    type: vm
`)
	_, err := Load(data)
	assert.Error(t, err)
}

func TestLoadRejectsServiceReferencingUnknownNetwork(t *testing.T) {
	data := []byte(`
version: "1.0"
services:
  web:
    type: process
    network: ghost
`)
	_, err := Load(data)
	assert.Error(t, err)
}

func TestLoadRejectsServiceDependingOnUnknownService(t *testing.T) {
	data := []byte(`
version: "1.0"
services:
  web:
    type: process
    dependencies: ["ghost"]
`)
	_, err := Load(data)
	assert.Error(t, err)
}

func TestLoadValidStackWithTask(t *testing.T) {
	data := []byte(`
version: "1.0"
services:
  db:
    type: docker
    image: postgres:16
tasks:
  migrate:
    type: process
    command: ["./migrate"]
    dependencies: ["db"]
`)
	stack, err := Load(data)
	require.NoError(t, err)
	assert.Equal(t, "process", stack.Tasks["migrate"].Type)
	assert.Equal(t, []string{"db"}, stack.Tasks["migrate"].Dependencies)
}

func TestLoadRejectsTaskWithNoType(t *testing.T) {
	data := []byte(`
version: "1.0"
tasks:
  migrate:
    command: ["./migrate"]
`)
	_, err := Load(data)
	assert.Error(t, err)
}

func TestLoadRejectsTaskDependingOnUnknown(t *testing.T) {
	data := []byte(`
version: "1.0"
tasks:
  migrate:
    type: process
    dependencies: ["ghost"]
`)
	_, err := Load(data)
	assert.Error(t, err)
}
