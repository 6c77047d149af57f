package executor

import (
	"github.com/cuemby/harness/pkg/command"
)

// DockerExecLayer reroutes a Command to run inside an already-running
// container via `docker exec`, used when a dependency must be reached
// through the container's own PID/network namespace rather than the host's.
type DockerExecLayer struct {
	Container string
	User      string
}

// Name implements Layer.
func (d *DockerExecLayer) Name() string { return "DockerExec" }

// Transform implements Layer.
func (d *DockerExecLayer) Transform(cmd *command.Command) *command.Command {
	b := command.NewBuilder("docker").Arg("exec")
	if cmd.HasStdinChannel() {
		b.Arg("-i")
	}
	if d.User != "" {
		b.Arg("-u").Arg(d.User)
	}
	if cmd.Cwd() != "" {
		b.Arg("-w").Arg(cmd.Cwd())
	}
	for k, v := range cmd.Env() {
		b.Arg("-e").Arg(k + "=" + v)
	}
	b.Arg(d.Container)
	b.Arg(cmd.Program())
	b.Args(cmd.Args()...)

	if cmd.HasStdinChannel() {
		b.StdinChannel(cmd.TakeStdinChannel())
	}
	return b.Build()
}
