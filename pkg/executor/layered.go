package executor

import (
	"context"

	"github.com/cuemby/harness/pkg/command"
	"github.com/cuemby/harness/pkg/herrors"
)

// Layer is a pure Command transformation applied before handing the result
// to an inner Launcher/Attacher — sudo, SSH, and docker-exec are all Layers.
// Name is used to annotate errors surfaced through it (spec §4.C: "errors
// from deeper layers are annotated with the outer layer's name").
type Layer interface {
	Name() string
	Transform(cmd *command.Command) *command.Command
}

// LayeredLauncher applies Layers to a Command, outermost last, before
// delegating to an inner Launcher. Composition mirrors the Rust original's
// layered::launcher: Layers are applied in the order given (each wrapping
// the previous result), and launch errors are annotated with each layer's
// name from outermost to innermost.
type LayeredLauncher struct {
	inner  Launcher
	layers []Layer
}

// NewLayeredLauncher composes inner with layers applied in order: the first
// layer transforms the original command, the second wraps that result, and
// so on — so passing []Layer{Sudo, SSH} runs sudo on the remote host reached
// over ssh.
func NewLayeredLauncher(inner Launcher, layers ...Layer) *LayeredLauncher {
	return &LayeredLauncher{inner: inner, layers: layers}
}

func (l *LayeredLauncher) Launch(ctx context.Context, target Target, cmd *command.Command) (EventStream, Handle, error) {
	transformed := cmd
	for _, layer := range l.layers {
		transformed = layer.Transform(transformed)
	}

	stream, handle, err := l.inner.Launch(ctx, target, transformed)
	if err != nil {
		return nil, nil, l.annotate(err)
	}
	return stream, handle, nil
}

func (l *LayeredLauncher) annotate(err error) error {
	for i := len(l.layers) - 1; i >= 0; i-- {
		err = herrors.AnnotateLayer(l.layers[i].Name(), err)
	}
	return err
}
