package protocol

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// JavaPathKind identifies which branch of JavaPath is active, independent
// of its resolved value — used by ConfigMask so a UI can round-trip the
// user's AutoDetect/Custom choice.
type JavaPathKind int

const (
	JavaPathAutoDetect JavaPathKind = iota
	JavaPathCustom
)

// JavaPath is either resolved automatically from the environment or a
// user-supplied path.
type JavaPath struct {
	Kind JavaPathKind `cbor:"kind"`
	Path string       `cbor:"path,omitempty"` // only meaningful when Kind == JavaPathCustom
}

// Resolve returns the path to the java executable to invoke. AutoDetect
// first consults JAVA_HOME, then searches PATH for java/java.exe.
func (j JavaPath) Resolve() (string, error) {
	switch j.Kind {
	case JavaPathCustom:
		return j.Path, nil
	case JavaPathAutoDetect:
		if path, ok := autoDetectFromJavaHome(); ok {
			return path, nil
		}
		if path, ok := autoDetectFromSystemPath(); ok {
			return path, nil
		}
		return "", fmt.Errorf("could not auto-detect a java executable: set JAVA_HOME or add java to PATH")
	default:
		return "", fmt.Errorf("unknown java path kind %d", j.Kind)
	}
}

func autoDetectFromJavaHome() (string, bool) {
	home, ok := os.LookupEnv("JAVA_HOME")
	if !ok || home == "" {
		return "", false
	}
	return filepath.Join(home, "bin", javaExecutableName()), true
}

func autoDetectFromSystemPath() (string, bool) {
	name := javaExecutableName()
	for _, dir := range filepath.SplitList(os.Getenv("PATH")) {
		candidate := filepath.Join(dir, name)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}
	}
	return "", false
}

func javaExecutableName() string {
	if runtime.GOOS == "windows" {
		return "java.exe"
	}
	return "java"
}
