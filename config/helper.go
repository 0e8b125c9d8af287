package config

import (
	"path"

	"github.com/fscifa/totepipe/constants"
	"github.com/mitchellh/go-homedir"
)

// DefaultFilePath returns ~/.totepipe/config.yaml, or the bare file name when the
// home directory cannot be found, e.g. inside AWS Lambda.
func DefaultFilePath() string {
	home, err := homedir.Dir()
	if err != nil {
		return constants.ConfigFileName
	}
	return path.Join(home, constants.ConfigDir, constants.ConfigFileName)
}
