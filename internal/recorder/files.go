package recorder

import (
	"fmt"

	"github.com/OCAP2/campath/internal/codec"
	"github.com/OCAP2/campath/pkg/core"
)

// Every Load* call decodes the whole file before touching the recorder, so a
// failed load leaves the current sequence in place.

// Load reads a native path file. An empty path means Options.DefaultFile.
func (r *Recorder) Load(path string) error {
	path = r.resolve(path)
	seq, err := codec.LoadNative(path)
	if err != nil {
		return err
	}
	r.loaded(seq, core.SourceNative, path)
	return nil
}

// Save writes the sequence as a native path file. An empty path means
// Options.DefaultFile.
func (r *Recorder) Save(path string) error {
	path = r.resolve(path)
	if err := codec.SaveNative(path, r.seq); err != nil {
		return err
	}
	r.logger.Info("Camera path saved", "path", path, "poses", len(r.seq))
	return nil
}

// LoadPath picks a codec by file extension and loads path.
func (r *Recorder) LoadPath(path string, width, height int) error {
	seq, format, err := codec.LoadAny(path, width, height)
	if err != nil {
		return err
	}
	r.loaded(seq, format.Source(), path)
	return nil
}

// SafeLoad is LoadPath reporting only success. The cause of a failure is logged.
func (r *Recorder) SafeLoad(path string, width, height int) bool {
	if err := r.LoadPath(path, width, height); err != nil {
		r.logger.Warn("Failed to load camera path", "path", path, "error", err)
		return false
	}
	return true
}

func (r *Recorder) LoadBundle(path string, width, height int) error {
	seq, err := codec.LoadBundle(path, width, height)
	if err != nil {
		return err
	}
	r.loaded(seq, core.SourceBundle, path)
	return nil
}

// LoadColmap reads images.txt at path together with its sibling cameras.txt.
func (r *Recorder) LoadColmap(path string, width, height int) error {
	seq, err := codec.LoadColmap(path, width, height)
	if err != nil {
		return err
	}
	r.loaded(seq, core.SourceColmap, path)
	return nil
}

func (r *Recorder) LoadLookat(path string, width, height int) error {
	seq, err := codec.LoadLookAt(path, width, height)
	if err != nil {
		return err
	}
	r.loaded(seq, core.SourceLookAt, path)
	return nil
}

// SaveAsBundle writes every step-th pose as a bundle file.
func (r *Recorder) SaveAsBundle(path string, height, step int) error {
	return r.saved(path, codec.SaveBundle(path, r.seq, height, step))
}

// SaveAsColmap writes images.txt and cameras.txt into dir.
func (r *Recorder) SaveAsColmap(dir string, width, height int) error {
	return r.saved(dir, codec.SaveColmap(dir, r.seq, width, height))
}

// SaveAsFRIBRBundle writes a bundle with blank placeholder images into dir.
func (r *Recorder) SaveAsFRIBRBundle(dir string, width, height int) error {
	return r.saved(dir, codec.ExportFRIBR(dir, r.seq, width, height))
}

func (r *Recorder) SaveAsLookAt(path string) error {
	return r.saved(path, codec.SaveLookAt(path, r.seq))
}

func (r *Recorder) loaded(seq core.Sequence, source, path string) {
	r.install(seq, source)
	r.logger.Info("Camera path loaded", "path", path, "source", source, "poses", len(seq))
}

func (r *Recorder) saved(path string, err error) error {
	if err != nil {
		return fmt.Errorf("failed to save camera path to %s: %w", path, err)
	}
	r.logger.Info("Camera path saved", "path", path, "poses", len(r.seq))
	return nil
}
