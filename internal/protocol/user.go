package protocol

import "os/exec"

// UserKind identifies which branch of User is active.
type UserKind int

const (
	UserCurrent UserKind = iota
	UserSpecific
)

// User selects which OS account runs the child process.
type User struct {
	Kind UserKind `cbor:"kind"`
	Name string   `cbor:"name,omitempty"` // only meaningful when Kind == UserSpecific
}

// Resolve returns the account name to run as, or "" for the current user.
func (u User) Resolve() string {
	if u.Kind == UserSpecific {
		return u.Name
	}
	return ""
}

// Command returns the exec.Cmd to run, prefixed with `sudo -u <name>` when
// Kind is UserSpecific. program/args become the sudo command's own
// arguments in that case, or the command directly otherwise.
func (u User) Command(program string, args ...string) *exec.Cmd {
	if u.Kind == UserSpecific {
		sudoArgs := append([]string{"-u", u.Name, program}, args...)
		return exec.Command("sudo", sudoArgs...)
	}
	return exec.Command(program, args...)
}
