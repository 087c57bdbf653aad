package inference

import (
	"os"
	"runtime"
	"sync"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
)

// LibraryPathEnv overrides the location of the ONNX Runtime shared library.
const LibraryPathEnv = "ONNXRUNTIME_SHARED_LIBRARY_PATH"

var envMu sync.Mutex

// DefaultLibraryPath returns the path to the shared library for the current
// platform, or the value of LibraryPathEnv when set.
//
// Returns:
//   - string: The path to the shared library.
//   - error: If no library is known for this platform.
func DefaultLibraryPath() (string, error) {
	if p := os.Getenv(LibraryPathEnv); p != "" {
		return p, nil
	}
	return platformLibraryPath(runtime.GOOS, runtime.GOARCH)
}

func platformLibraryPath(goos, goarch string) (string, error) {
	switch goos {
	case "windows":
		if goarch == "amd64" {
			return "./third_party/onnxruntime.dll", nil
		}
	case "darwin":
		return "./third_party/libonnxruntime.dylib", nil
	case "linux":
		if goarch == "arm64" {
			return "./third_party/onnxruntime_arm64.so", nil
		}
		return "./third_party/onnxruntime.so", nil
	}
	return "", errors.Errorf("no onnxruntime library known for %s/%s", goos, goarch)
}

// Initialize loads the ONNX Runtime shared library and prepares the
// process-wide environment. Later calls are no-ops.
//
// Arguments:
//   - libraryPath: The shared library, or empty for DefaultLibraryPath.
//
// Returns:
//   - error: If the library is missing or fails to load.
func Initialize(libraryPath string) error {
	envMu.Lock()
	defer envMu.Unlock()

	if ort.IsInitialized() {
		return nil
	}

	if libraryPath == "" {
		p, err := DefaultLibraryPath()
		if err != nil {
			return err
		}
		libraryPath = p
	}
	if _, err := os.Stat(libraryPath); err != nil {
		return errors.Wrapf(err, "ONNX Runtime library not found at %s", libraryPath)
	}

	ort.SetSharedLibraryPath(libraryPath)
	if err := ort.InitializeEnvironment(); err != nil {
		return errors.Wrap(err, "error initializing ORT environment")
	}
	return nil
}

// Shutdown tears the environment down. Sessions must be closed first.
func Shutdown() error {
	envMu.Lock()
	defer envMu.Unlock()

	if !ort.IsInitialized() {
		return nil
	}
	return errors.Wrap(ort.DestroyEnvironment(), "error destroying ORT environment")
}
