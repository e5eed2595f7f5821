package storage

import (
	"io/ioutil"
	"os"
	"path/filepath"
)

// RestoreFile restores store from the transcript saved at path. A missing
// file leaves the store empty.
func RestoreFile(store Store, path string) error {
	values, err := ioutil.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	return store.Restore(values)
}

// BackupFile saves the transcript of store to path, replacing the file by
// rename.
func BackupFile(store Store, path string) error {
	values, err := store.Backup()
	if err != nil {
		return err
	}

	tmp, err := ioutil.TempFile(filepath.Dir(path), filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(values); err != nil {
		tmp.Close()
		return err
	}

	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), path)
}
