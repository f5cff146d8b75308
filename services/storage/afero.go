// Package filesvc keeps generated receipt documents on an afero
// filesystem. The handle returned by Upload is the slash path of the
// stored file, relative to the filesystem root.
package filesvc

import (
	"io"
	"os"
	"path"

	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"github.com/trezcool/risiti/core"
)

type aferoStore struct {
	fs afero.Fs
}

var _ core.FileStore = (*aferoStore)(nil)

// NewOsStore stores documents under conf.Storage.Root on the local disk.
func NewOsStore(conf *core.Config) (core.FileStore, error) {
	if err := os.MkdirAll(conf.Storage.Root, 0o755); err != nil {
		return nil, errors.Wrapf(err, "creating storage root %s", conf.Storage.Root)
	}
	return &aferoStore{fs: afero.NewBasePathFs(afero.NewOsFs(), conf.Storage.Root)}, nil
}

// NewMemStore stores documents in memory; for tests.
func NewMemStore() core.FileStore {
	return &aferoStore{fs: afero.NewMemMapFs()}
}

func (s *aferoStore) Upload(key string, r io.Reader) (string, error) {
	key = path.Clean("/" + key)[1:]
	if dir := path.Dir(key); dir != "." {
		if err := s.fs.MkdirAll(dir, 0o755); err != nil {
			return "", errors.Wrapf(err, "creating directory %s", dir)
		}
	}
	if err := afero.WriteReader(s.fs, key, r); err != nil {
		return "", errors.Wrapf(err, "writing %s", key)
	}
	return key, nil
}

func (s *aferoStore) Download(handle string) ([]byte, error) {
	data, err := afero.ReadFile(s.fs, handle)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, core.ErrFileNotFound
		}
		return nil, errors.Wrapf(err, "reading %s", handle)
	}
	return data, nil
}

func (s *aferoStore) Delete(handle string) error {
	if err := s.fs.Remove(handle); err != nil {
		if os.IsNotExist(err) {
			return core.ErrFileNotFound
		}
		return errors.Wrapf(err, "removing %s", handle)
	}
	return nil
}
