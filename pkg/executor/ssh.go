package executor

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cuemby/harness/pkg/command"
)

// SSHLayer reroutes a Command through an ssh invocation targeting a remote
// host. The remote shell re-splits whatever string ssh sends it, so every
// piece of the inner command is POSIX single-quoted individually before
// being joined (spec §4.C's exact shell-escaping rule, scenario 3 in §8:
// an argument containing a single quote round-trips unchanged on the
// remote end).
type SSHLayer struct {
	Host string
	User string
	Port int
	// IdentityFile, if set, is passed as -i.
	IdentityFile string
}

// Name implements Layer.
func (s *SSHLayer) Name() string { return "SSH" }

// Transform implements Layer.
func (s *SSHLayer) Transform(cmd *command.Command) *command.Command {
	pieces := make([]string, 0, len(cmd.Args())+2)
	for key, value := range cmd.Env() {
		pieces = append(pieces, shellQuote(key+"="+value))
	}
	pieces = append(pieces, shellQuote(cmd.Program()))
	for _, a := range cmd.Args() {
		pieces = append(pieces, shellQuote(a))
	}
	remote := strings.Join(pieces, " ")

	b := command.NewBuilder("ssh")
	if s.Port != 0 {
		b.Arg("-p").Arg(strconv.Itoa(s.Port))
	}
	if s.IdentityFile != "" {
		b.Arg("-i").Arg(s.IdentityFile)
	}
	b.Arg("-o").Arg("BatchMode=yes")
	b.Arg(s.destination())
	if cmd.Cwd() != "" {
		remote = fmt.Sprintf("cd %s && %s", shellQuote(cmd.Cwd()), remote)
	}
	b.Arg(remote)

	if cmd.HasStdinChannel() {
		b.StdinChannel(cmd.TakeStdinChannel())
	}
	return b.Build()
}

func (s *SSHLayer) destination() string {
	if s.User != "" {
		return s.User + "@" + s.Host
	}
	return s.Host
}

// shellSpecial is the set of characters that force a token to be quoted:
// whitespace or any POSIX shell metacharacter (spec §4.C).
const shellSpecial = " \t\n\"'\\$!*?<>|&;()[]{}"

// needsQuoting reports whether s must be single-quoted to round-trip
// through a remote shell unchanged.
func needsQuoting(s string) bool {
	if s == "" {
		return true
	}
	return strings.ContainsAny(s, shellSpecial)
}

// shellQuote single-quotes s only if it needs it, leaving a bare word like
// "sh" or "-c" untouched. An embedded single quote is escaped as '"'"'
// (close the quote, emit a double-quoted quote, reopen) per spec §4.C.
func shellQuote(s string) string {
	if !needsQuoting(s) {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}
