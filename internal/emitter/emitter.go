// Package emitter implements save_as_file, the template function that writes
// a text or base64 payload to a path sandboxed under a fixed output root.
package emitter

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/kingrea/savefile/internal/args"
)

// FunctionName is the name templates use to invoke the emitter.
const FunctionName = "save_as_file"

const (
	DefaultDirMode  os.FileMode = 0o755
	DefaultFileMode os.FileMode = 0o644
)

// WriteRequest is the validated form of one call's arguments.
type WriteRequest struct {
	Path   string
	Data   string
	Base64 bool
}

// ResolvedTarget is where a request lands on disk.
type ResolvedTarget struct {
	AbsolutePath string
	ParentDir    string
}

// FileEmitter writes payloads beneath Root. It holds no per-call state and is
// safe for concurrent use; overlapping writes to one path are last-writer-wins.
type FileEmitter struct {
	root     string
	strict   bool
	dirMode  os.FileMode
	fileMode os.FileMode
	fs       FS
	log      zerolog.Logger
	metrics  *Metrics
	newID    func() string
}

// Option customizes a FileEmitter during construction.
type Option func(*FileEmitter)

// WithStrictPaths toggles the ancestor check performed after the "/.."
// substring check. Strict mode is on by default.
func WithStrictPaths(strict bool) Option {
	return func(e *FileEmitter) {
		e.strict = strict
	}
}

// WithModes overrides the permissions used for created directories and files.
func WithModes(dir, file os.FileMode) Option {
	return func(e *FileEmitter) {
		if dir != 0 {
			e.dirMode = dir
		}
		if file != 0 {
			e.fileMode = file
		}
	}
}

// WithFS swaps the filesystem implementation.
func WithFS(fs FS) Option {
	return func(e *FileEmitter) {
		if fs != nil {
			e.fs = fs
		}
	}
}

// WithLogger attaches a structured logger. The default discards output.
func WithLogger(l zerolog.Logger) Option {
	return func(e *FileEmitter) {
		e.log = l
	}
}

// WithMetrics records call outcomes on m.
func WithMetrics(m *Metrics) Option {
	return func(e *FileEmitter) {
		e.metrics = m
	}
}

// WithCallIDs overrides the generator used to tag log events.
func WithCallIDs(gen func() string) Option {
	return func(e *FileEmitter) {
		if gen != nil {
			e.newID = gen
		}
	}
}

// New builds an emitter rooted at root. Relative roots are made absolute
// against the working directory once, here.
func New(root string, opts ...Option) (*FileEmitter, error) {
	trimmed := strings.TrimSpace(root)
	if trimmed == "" {
		return nil, fmt.Errorf("emitter: output root is required")
	}
	abs, err := filepath.Abs(trimmed)
	if err != nil {
		return nil, fmt.Errorf("emitter: resolve output root: %w", err)
	}
	e := &FileEmitter{
		root:     filepath.Clean(abs),
		strict:   true,
		dirMode:  DefaultDirMode,
		fileMode: DefaultFileMode,
		fs:       OSFS{},
		log:      zerolog.Nop(),
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Root returns the absolute output root.
func (e *FileEmitter) Root() string { return e.root }

// Strict reports whether the ancestor check is enabled.
func (e *FileEmitter) Strict() bool { return e.strict }

// Name returns the template-facing function name.
func (e *FileEmitter) Name() string { return FunctionName }

// IsSafe reports that the function only leaks a boolean into rendered output.
func (e *FileEmitter) IsSafe() bool { return true }

// Call runs one save_as_file invocation and returns Bool(true) on success.
func (e *FileEmitter) Call(bag args.Bag) (args.Value, error) {
	id := e.newID()
	req, err := ParseRequest(bag)
	if err != nil {
		e.finish(id, req, 0, err)
		return args.Value{}, err
	}
	target, err := e.target(req.Path)
	if err != nil {
		e.finish(id, req, 0, err)
		return args.Value{}, err
	}
	n, err := e.materialize(target, req)
	e.finish(id, req, n, err)
	if err != nil {
		return args.Value{}, err
	}
	return args.Bool(true), nil
}

// ParseRequest extracts path, data and base64 from bag. Unknown keys are
// ignored.
func ParseRequest(bag args.Bag) (WriteRequest, error) {
	path, err := bag.RequiredString("path")
	if err != nil {
		return WriteRequest{}, argumentError("path", err)
	}
	data, err := bag.RequiredString("data")
	if err != nil {
		return WriteRequest{Path: path}, argumentError("data", err)
	}
	encoded, err := bag.OptionalBool("base64", false)
	if err != nil {
		return WriteRequest{Path: path}, argumentError("base64", err)
	}
	return WriteRequest{Path: path, Data: data, Base64: encoded}, nil
}

// Resolve maps path under the root and ensures its parent directory exists.
func (e *FileEmitter) Resolve(path string) (ResolvedTarget, error) {
	target, err := e.target(path)
	if err != nil {
		return ResolvedTarget{}, err
	}
	if err := e.ensureParent(path, target); err != nil {
		return ResolvedTarget{}, err
	}
	return target, nil
}

// Materialize decodes the payload if needed and writes it to target,
// overwriting any existing file. Decoding happens before anything touches
// the disk.
func (e *FileEmitter) Materialize(target ResolvedTarget, req WriteRequest) error {
	_, err := e.materialize(target, req)
	return err
}

func (e *FileEmitter) target(path string) (ResolvedTarget, error) {
	if strings.Contains(path, "/..") {
		return ResolvedTarget{}, pathError(path, "`path` argument must not contain reference to parent directory `..`")
	}
	if strings.ContainsRune(path, 0) {
		return ResolvedTarget{}, pathError(path, "`path` argument must not contain NUL bytes")
	}
	rel := path
	if strings.HasPrefix(rel, "/") {
		rel = "." + rel
	}
	abs := filepath.Join(e.root, rel)
	if e.strict && !within(e.root, abs) {
		return ResolvedTarget{}, pathError(path, "`path` argument resolves outside the output root")
	}
	if abs == e.root {
		return ResolvedTarget{}, pathError(path, "`path` argument must name a file below the output root")
	}
	if e.strict {
		ok, err := e.resolvesWithin(abs)
		if err != nil {
			return ResolvedTarget{}, &Error{Kind: KindPathSecurity, Path: path, Detail: "`path` argument could not be resolved", Err: err}
		}
		if !ok {
			return ResolvedTarget{}, pathError(path, "`path` argument escapes the output root through a symlink")
		}
	}
	return ResolvedTarget{AbsolutePath: abs, ParentDir: filepath.Dir(abs)}, nil
}

func (e *FileEmitter) materialize(target ResolvedTarget, req WriteRequest) (int, error) {
	payload := []byte(req.Data)
	if req.Base64 {
		decoded, err := decodeBase64(req.Data)
		if err != nil {
			return 0, encodingError(req.Path, err)
		}
		payload = decoded
	}
	if err := e.ensureParent(req.Path, target); err != nil {
		return 0, err
	}
	if err := e.fs.WriteFile(target.AbsolutePath, payload, e.fileMode); err != nil {
		return 0, ioError(req.Path, fmt.Sprintf("write %s", target.AbsolutePath), err)
	}
	return len(payload), nil
}

func (e *FileEmitter) ensureParent(path string, target ResolvedTarget) error {
	if err := e.fs.MkdirAll(target.ParentDir, e.dirMode); err != nil {
		return ioError(path, fmt.Sprintf("create directory %s", target.ParentDir), err)
	}
	return nil
}

func (e *FileEmitter) finish(id string, req WriteRequest, written int, err error) {
	e.metrics.observe(err, written)
	if err != nil {
		e.log.Warn().
			Str("call_id", id).
			Str("path", req.Path).
			Str("kind", string(KindOf(err))).
			Err(err).
			Msg(FunctionName + " failed")
		return
	}
	e.log.Info().
		Str("call_id", id).
		Str("path", req.Path).
		Bool("base64", req.Base64).
		Int("bytes", written).
		Msg(FunctionName + " wrote file")
}

// decodeBase64 accepts only canonical standard-alphabet base64 with padding.
// The stdlib decoder skips CR and LF even in strict mode, so line breaks are
// reported as corrupt input at their offset.
func decodeBase64(data string) ([]byte, error) {
	if i := strings.IndexAny(data, "\r\n"); i >= 0 {
		return nil, base64.CorruptInputError(i)
	}
	return base64.StdEncoding.Strict().DecodeString(data)
}

// resolvesWithin follows symlinks on the deepest existing ancestor of abs
// and reports whether the real location is still below the real root.
// A root that does not exist yet cannot hold symlinks.
func (e *FileEmitter) resolvesWithin(abs string) (bool, error) {
	realRoot, err := filepath.EvalSymlinks(e.root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return true, nil
		}
		return false, err
	}
	existing := abs
	for existing != e.root {
		if _, err := os.Lstat(existing); err == nil {
			break
		}
		existing = filepath.Dir(existing)
	}
	resolved, err := filepath.EvalSymlinks(existing)
	if err != nil {
		return false, err
	}
	return within(realRoot, resolved), nil
}

func within(root, candidate string) bool {
	rel, err := filepath.Rel(root, candidate)
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
