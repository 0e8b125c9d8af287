package actions

import (
	"github.com/fscifa/totepipe/logger"
	"github.com/fscifa/totepipe/rdbms"
)

// DbOpener opens a database connection for the DSN in d.
type DbOpener func(log logger.Logger, d rdbms.DsnConnectionDetails) (rdbms.Connector, error)

// ObjectPutter is the subset of s3.BasicClient the stages use to publish files.
type ObjectPutter interface {
	Bucket() string
	Put(key string, data []byte) error
}
