package config

import (
	"io"
	"os"
	"path/filepath"
)

// ReadManifestFile reads a manifest file, or stdin when its name is "-".
func ReadManifestFile(manifestFile string) ([]byte, error) {
	_, file := filepath.Split(manifestFile)
	var data []byte
	var err error
	if file == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(manifestFile)
	}
	return data, err
}
