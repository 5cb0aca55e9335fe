package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

var pngSignature = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// WriteImage writes a small file starting with a PNG signature followed by
// size bytes of filler. The service is faked in tests, so the payload only
// needs to look like an image to content sniffing.
func WriteImage(t testing.TB, path string, size int) string {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	data := make([]byte, 0, len(pngSignature)+size)
	data = append(data, pngSignature...)
	for i := 0; i < size; i++ {
		data = append(data, 0x42)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
