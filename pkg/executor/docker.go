package executor

import (
	"context"

	"github.com/cuemby/harness/pkg/command"
	"github.com/cuemby/harness/pkg/herrors"
)

// DockerLauncher runs a fresh container via the docker CLI and streams its
// logs, grounded in the same host-binary-shelling style the teacher's
// pkg/runtime wraps over the containerd client for local dev convenience.
type DockerLauncher struct {
	inner *LocalLauncher
}

// NewDockerLauncher returns a Launcher that starts containers with `docker run`.
func NewDockerLauncher() *DockerLauncher {
	return &DockerLauncher{inner: NewLocalLauncher()}
}

func (d *DockerLauncher) Launch(ctx context.Context, target Target, cmd *command.Command) (EventStream, Handle, error) {
	if target.Kind != TargetDockerContainer {
		return nil, nil, herrors.New(herrors.Unsupported, "DockerLauncher requires a docker-container target")
	}
	spec := target.Container

	b := command.NewBuilder("docker").Arg("run").Arg("--rm")
	if !spec.RemoveOnExit {
		b = command.NewBuilder("docker").Arg("run")
	}
	if spec.Name != "" {
		b.Arg("--name").Arg(spec.Name)
	}
	if spec.WorkingDir != "" {
		b.Arg("-w").Arg(spec.WorkingDir)
	}
	for _, vol := range spec.Volumes {
		b.Arg("-v").Arg(vol[0] + ":" + vol[1])
	}
	for k, v := range spec.Env {
		b.Arg("-e").Arg(k + "=" + v)
	}
	if cmd.HasStdinChannel() {
		b.Arg("-i")
	}
	b.Arg(spec.Image)
	b.Arg(cmd.Program())
	b.Args(cmd.Args()...)
	if cmd.HasStdinChannel() {
		b.StdinChannel(cmd.TakeStdinChannel())
	}

	return d.inner.Launch(ctx, target, b.Build())
}
