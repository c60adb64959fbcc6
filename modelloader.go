package vocana

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
)

const maxModelFileBytes = 1 << 30 // 1 GiB

// modelFileNames are the three files a bundle directory must contain,
// per spec §6.
var modelFileNames = struct {
	Encoder, ERBDec, DFDec string
}{
	Encoder: "enc.onnx",
	ERBDec:  "erb_dec.onnx",
	DFDec:   "df_dec.onnx",
}

// ModelLoader is the Model Loader capability: given an allowlisted
// bundle directory, it locates and size-validates the three model
// files a Pipeline needs. It never parses model bytes itself (that is
// the InferenceBackend's concern) — its job is path safety and size
// validation before any bytes are handed to a backend.
type ModelLoader struct {
	allowedRoots []string
}

// NewModelLoader constructs a ModelLoader restricted to the given
// allowlisted root directories (typically an application bundle's
// resources subtree). Each root is canonicalized at construction
// time.
func NewModelLoader(allowedRoots ...string) (*ModelLoader, error) {
	canon := make([]string, 0, len(allowedRoots))
	for _, r := range allowedRoots {
		if r == "" {
			return nil, newError(ErrorKindModelLoadFailed, "model_loader.new", "allowlisted root path is empty")
		}
		abs, err := filepath.Abs(r)
		if err != nil {
			return nil, wrapError(ErrorKindModelLoadFailed, "model_loader.new", "failed to canonicalize allowlisted root", err)
		}
		canon = append(canon, filepath.Clean(abs))
	}
	if len(canon) == 0 {
		return nil, newError(ErrorKindModelLoadFailed, "model_loader.new", "at least one allowlisted root is required")
	}
	return &ModelLoader{allowedRoots: canon}, nil
}

// resolve canonicalizes dir and verifies it falls within an
// allowlisted root, rejecting empty paths and directory traversal.
func (l *ModelLoader) resolve(dir string) (string, error) {
	if dir == "" {
		return "", newError(ErrorKindModelLoadFailed, "model_loader.resolve", "bundle directory path is empty")
	}
	if strings.Contains(dir, "..") {
		return "", newError(ErrorKindModelLoadFailed, "model_loader.resolve", "bundle directory path contains traversal segment")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", wrapError(ErrorKindModelLoadFailed, "model_loader.resolve", "failed to canonicalize bundle directory", err)
	}
	abs = filepath.Clean(abs)

	for _, root := range l.allowedRoots {
		if abs == root || strings.HasPrefix(abs, root+string(filepath.Separator)) {
			return abs, nil
		}
	}
	return "", newError(ErrorKindModelLoadFailed, "model_loader.resolve", "bundle directory is outside the allowlisted roots")
}

// readModelFile validates and reads a single model file from the
// resolved bundle directory. Files suffixed .zst are transparently
// decompressed after the on-disk size check (the size check applies
// to the compressed artifact actually stored, matching what a
// deployment ships).
func (l *ModelLoader) readModelFile(dir, name string) ([]byte, error) {
	plainPath := filepath.Join(dir, name)
	zstPath := plainPath + ".zst"

	path := plainPath
	compressed := false
	if info, err := os.Stat(zstPath); err == nil {
		path = zstPath
		compressed = true
		if info.Size() > maxModelFileBytes {
			return nil, newError(ErrorKindModelLoadFailed, "model_loader.read", "model file exceeds 1 GiB limit: "+zstPath)
		}
	} else {
		info, err := os.Stat(plainPath)
		if err != nil {
			return nil, wrapError(ErrorKindModelLoadFailed, "model_loader.read", "model file not found: "+plainPath, err)
		}
		if info.Size() > maxModelFileBytes {
			return nil, newError(ErrorKindModelLoadFailed, "model_loader.read", "model file exceeds 1 GiB limit: "+plainPath)
		}
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, wrapError(ErrorKindModelLoadFailed, "model_loader.read", "failed to read model file: "+path, err)
	}
	if !compressed {
		return raw, nil
	}

	dec, err := zstd.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, wrapError(ErrorKindModelLoadFailed, "model_loader.read", "failed to open zstd stream: "+path, err)
	}
	defer dec.Close()

	out, err := io.ReadAll(dec)
	if err != nil {
		return nil, wrapError(ErrorKindModelLoadFailed, "model_loader.read", "failed to decompress model file: "+path, err)
	}
	return out, nil
}

// ModelBytes is the result of loading a bundle: the raw (decompressed)
// bytes of each of the three model files, ready to be handed to
// whatever backend construction a caller's InferenceBackend
// implementation requires.
type ModelBytes struct {
	Encoder []byte
	ERBDec  []byte
	DFDec   []byte
}

// Load resolves dir against the allowlist and reads the three model
// files it must contain.
func (l *ModelLoader) Load(dir string) (ModelBytes, error) {
	resolved, err := l.resolve(dir)
	if err != nil {
		return ModelBytes{}, err
	}

	enc, err := l.readModelFile(resolved, modelFileNames.Encoder)
	if err != nil {
		return ModelBytes{}, err
	}
	erbDec, err := l.readModelFile(resolved, modelFileNames.ERBDec)
	if err != nil {
		return ModelBytes{}, err
	}
	dfDec, err := l.readModelFile(resolved, modelFileNames.DFDec)
	if err != nil {
		return ModelBytes{}, err
	}
	return ModelBytes{Encoder: enc, ERBDec: erbDec, DFDec: dfDec}, nil
}
