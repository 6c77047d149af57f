package executor

import (
	"github.com/cuemby/harness/pkg/command"
)

// SudoLayer reroutes a Command through sudo as another user, preserving the
// command's declared environment by passing it through `env` rather than
// relying on sudo's own (disabled-by-default) env_keep configuration.
type SudoLayer struct {
	User string // empty means root
}

// Name implements Layer.
func (s *SudoLayer) Name() string { return "Sudo" }

// Transform implements Layer.
func (s *SudoLayer) Transform(cmd *command.Command) *command.Command {
	b := command.NewBuilder("sudo").Arg("-n")
	if cmd.Cwd() != "" {
		b.Cwd(cmd.Cwd())
	}
	if s.User != "" {
		b.Arg("-u").Arg(s.User)
	}
	b.Arg("--")

	if len(cmd.Env()) > 0 {
		b.Arg("env")
		for k, v := range cmd.Env() {
			b.Arg(k + "=" + v)
		}
	}
	b.Arg(cmd.Program())
	b.Args(cmd.Args()...)

	if cmd.HasStdinChannel() {
		b.StdinChannel(cmd.TakeStdinChannel())
	}
	return b.Build()
}
