package protocol_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ALinuxPerson/raphy/internal/protocol"
)

func TestJavaPathCustomResolvesToItsOwnPath(t *testing.T) {
	jp := protocol.JavaPath{Kind: protocol.JavaPathCustom, Path: "/usr/lib/jvm/java-21/bin/java"}

	path, err := jp.Resolve()
	require.NoError(t, err)
	assert.Equal(t, "/usr/lib/jvm/java-21/bin/java", path)
}

func TestJavaPathAutoDetectPrefersJavaHome(t *testing.T) {
	t.Setenv("JAVA_HOME", "/opt/jdk")

	jp := protocol.JavaPath{Kind: protocol.JavaPathAutoDetect}
	path, err := jp.Resolve()
	require.NoError(t, err)
	assert.Contains(t, path, "/opt/jdk")
}
