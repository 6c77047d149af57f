package executor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/harness/pkg/command"
)

func TestShellQuoteOnlyQuotesWhenNeeded(t *testing.T) {
	assert.Equal(t, "plain", shellQuote("plain"), "a bare word needs no quoting")
	assert.Equal(t, "sh", shellQuote("sh"))
	assert.Equal(t, `'it'"'"'s'`, shellQuote("it's"))
	assert.Equal(t, `''`, shellQuote(""))
}

// TestShellQuoteMatchesScenario3 runs spec §8 scenario 3's exact example
// through Transform: program="sh", args=["-c", "echo $HOME; echo 'hi'"]
// must produce `sh -c 'echo $HOME; echo '"'"'hi'"'"''`.
func TestShellQuoteMatchesScenario3(t *testing.T) {
	layer := &SSHLayer{Host: "remote"}
	cmd := command.NewBuilder("sh").Arg("-c").Arg(`echo $HOME; echo 'hi'`).Build()

	out := layer.Transform(cmd)
	remote := out.Args()[len(out.Args())-1]

	assert.Equal(t, `sh -c 'echo $HOME; echo '"'"'hi'"'"''`, remote)
}

func TestSSHLayerTransformBuildsRemoteCommand(t *testing.T) {
	layer := &SSHLayer{Host: "db.internal", User: "deploy", Port: 2222}
	cmd := command.NewBuilder("echo").Arg("it's fine").Build()

	out := layer.Transform(cmd)

	assert.Equal(t, "ssh", out.Program())
	require.Contains(t, out.Args(), "-p")
	require.Contains(t, out.Args(), "2222")
	require.Contains(t, out.Args(), "deploy@db.internal")

	remote := out.Args()[len(out.Args())-1]
	assert.Contains(t, remote, shellQuote("it's fine"))
}

func TestSudoLayerAddsUserFlag(t *testing.T) {
	layer := &SudoLayer{User: "svc"}
	cmd := command.NewBuilder("/usr/bin/app").Arg("--flag").Build()

	out := layer.Transform(cmd)

	assert.Equal(t, "sudo", out.Program())
	require.Contains(t, out.Args(), "-u")
	require.Contains(t, out.Args(), "svc")
	require.Contains(t, out.Args(), "/usr/bin/app")
}

func TestSSHLayerWrapsSudoLayer(t *testing.T) {
	cmd := command.NewBuilder("/usr/bin/app").Build()
	sudo := &SudoLayer{User: "svc"}
	ssh := &SSHLayer{Host: "db.internal"}

	transformed := ssh.Transform(sudo.Transform(cmd))

	assert.Equal(t, "ssh", transformed.Program())
	remote := transformed.Args()[len(transformed.Args())-1]
	assert.Contains(t, remote, "sudo")
}
