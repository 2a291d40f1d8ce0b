package protocol_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ALinuxPerson/raphy/internal/protocol"
)

func TestUserCurrentResolvesToEmptyString(t *testing.T) {
	u := protocol.User{Kind: protocol.UserCurrent}
	assert.Equal(t, "", u.Resolve())

	cmd := u.Command("java", "-jar", "server.jar")
	assert.Equal(t, []string{"java", "-jar", "server.jar"}, cmd.Args)
}

func TestUserSpecificResolvesToItsName(t *testing.T) {
	u := protocol.User{Kind: protocol.UserSpecific, Name: "minecraft"}
	assert.Equal(t, "minecraft", u.Resolve())

	cmd := u.Command("java", "-jar", "server.jar")
	assert.Equal(t, []string{"sudo", "-u", "minecraft", "java", "-jar", "server.jar"}, cmd.Args)
}
