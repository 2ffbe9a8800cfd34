package dynamic

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/wippyai/dyntype/emit"
	"github.com/wippyai/dyntype/errors"
	"github.com/wippyai/dyntype/loading"
)

// ManifestFile names the manifest inside an archive.
const ManifestFile = "manifest.yaml"

// maxEntrySize bounds a single archive entry.
const maxEntrySize = 64 << 20

// Manifest lists the types of an archive, dependencies first.
type Manifest struct {
	Main  string          `yaml:"main"`
	Types []ManifestEntry `yaml:"types"`
}

type ManifestEntry struct {
	Name         string   `yaml:"name"`
	Path         string   `yaml:"path"`
	SHA256       string   `yaml:"sha256"`
	Dependencies []string `yaml:"dependencies,omitempty"`
}

// Persist writes every type to dir as <name with . as />.wasm and returns
// the written paths by type name.
func (d *DynamicType) Persist(dir string) (map[string]string, error) {
	out := make(map[string]string)
	for _, t := range d.AllTypes() {
		if !validName(t.Name()) {
			return nil, errors.InvalidInput(errors.PhasePersist, "type name cannot be persisted: "+t.Name())
		}
		p := filepath.Join(dir, typePath(t.Name()))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return nil, errors.IO(errors.PhasePersist, "mkdir "+filepath.Dir(p), err)
		}
		if err := os.WriteFile(p, t.bytes, 0o644); err != nil {
			return nil, errors.IO(errors.PhasePersist, "write "+p, err)
		}
		out[t.Name()] = p
	}
	Logger().Debug("persisted types", zap.String("type", d.Name()), zap.String("dir", dir), zap.Int("count", len(out)))
	return out, nil
}

// Archive writes every type plus a manifest to w as a gzip-compressed tar.
func (d *DynamicType) Archive(w io.Writer) error {
	gz := gzip.NewWriter(w)
	tw := tar.NewWriter(gz)

	m := Manifest{Main: d.Name()}
	for _, def := range d.definitions() {
		if !validName(def.Name) {
			return errors.InvalidInput(errors.PhasePersist, "type name cannot be archived: "+def.Name)
		}
		name := path.Join("types", strings.ReplaceAll(def.Name, ".", "/")+".wasm")
		if err := writeEntry(tw, name, def.Bytes); err != nil {
			return err
		}
		sum := sha256.Sum256(def.Bytes)
		m.Types = append(m.Types, ManifestEntry{
			Name:         def.Name,
			Path:         name,
			SHA256:       hex.EncodeToString(sum[:]),
			Dependencies: def.Dependencies,
		})
	}

	data, err := yaml.Marshal(&m)
	if err != nil {
		return errors.Wrap(errors.PhasePersist, errors.KindIO, err, "encode manifest")
	}
	if err := writeEntry(tw, ManifestFile, data); err != nil {
		return err
	}
	if err := tw.Close(); err != nil {
		return errors.IO(errors.PhasePersist, "close archive", err)
	}
	if err := gz.Close(); err != nil {
		return errors.IO(errors.PhasePersist, "close archive", err)
	}
	return nil
}

func writeEntry(tw *tar.Writer, name string, data []byte) error {
	hdr := &tar.Header{Name: name, Mode: 0o644, Size: int64(len(data)), Typeflag: tar.TypeReg}
	if err := tw.WriteHeader(hdr); err != nil {
		return errors.IO(errors.PhasePersist, "write "+name, err)
	}
	if _, err := tw.Write(data); err != nil {
		return errors.IO(errors.PhasePersist, "write "+name, err)
	}
	return nil
}

// Bundle is an archive read back into memory.
type Bundle struct {
	manifest Manifest
	bins     map[string][]byte
}

// ReadArchive reads an archive written by Archive and verifies every entry
// against the manifest.
func ReadArchive(r io.Reader) (*Bundle, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, errors.IO(errors.PhaseLoad, "open archive", err)
	}
	defer gz.Close()

	files := make(map[string][]byte)
	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.IO(errors.PhaseLoad, "read archive", err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		if hdr.Size > maxEntrySize {
			return nil, errors.InvalidInput(errors.PhaseLoad, "archive entry too large: "+hdr.Name)
		}
		data, err := io.ReadAll(io.LimitReader(tr, maxEntrySize))
		if err != nil {
			return nil, errors.IO(errors.PhaseLoad, "read "+hdr.Name, err)
		}
		files[hdr.Name] = data
	}

	raw, ok := files[ManifestFile]
	if !ok {
		return nil, errors.NotFound(errors.PhaseLoad, "archive entry", ManifestFile)
	}
	b := &Bundle{bins: make(map[string][]byte)}
	if err := yaml.Unmarshal(raw, &b.manifest); err != nil {
		return nil, errors.Wrap(errors.PhaseLoad, errors.KindInvalidInput, err, "malformed manifest")
	}
	for _, e := range b.manifest.Types {
		data, ok := files[e.Path]
		if !ok {
			return nil, errors.NotFound(errors.PhaseLoad, "archive entry", e.Path)
		}
		sum := sha256.Sum256(data)
		if hex.EncodeToString(sum[:]) != e.SHA256 {
			return nil, errors.New(errors.PhaseLoad, errors.KindInvalidInput).
				Path(e.Name).
				Detail("checksum mismatch").
				Build()
		}
		b.bins[e.Name] = data
	}
	if _, ok := b.bins[b.manifest.Main]; !ok {
		return nil, errors.NotFound(errors.PhaseLoad, "main type", b.manifest.Main)
	}
	return b, nil
}

// Main returns the name of the archived main type.
func (b *Bundle) Main() string { return b.manifest.Main }

// Manifest returns the archive manifest.
func (b *Bundle) Manifest() Manifest { return b.manifest }

// Locate implements Locator.
func (b *Bundle) Locate(name string) (Resolution, error) {
	bin, ok := b.bins[name]
	if !ok {
		return Illegal(name), nil
	}
	return Resolution{Name: name, Resolved: true, Bytes: append([]byte(nil), bin...)}, nil
}

// Metadata returns the descriptor of an archived type.
func (b *Bundle) Metadata(name string) (*emit.Metadata, error) {
	bin, ok := b.bins[name]
	if !ok {
		return nil, errors.NotFound(errors.PhaseLoad, "type", name)
	}
	return emit.ReadMetadata(bin)
}

// Load defines the archived main type and its auxiliary types in ns.
func (b *Bundle) Load(ctx context.Context, ns *loading.Namespace, strategy loading.Strategy) (*Loaded, error) {
	return Define(ctx, ns, b, b.manifest.Main, strategy)
}
