package blob

import (
	"context"
	"fmt"
)

// Options selects and configures a driver for Open.
type Options struct {
	Driver string // fs (default) | memory | s3
	FSRoot string
	S3     S3Config
}

// Open returns the Store named by opts.Driver.
func Open(ctx context.Context, opts Options) (Store, error) {
	driver := Driver(opts.Driver)
	if driver == "" {
		driver = DriverFilesystem
	}
	switch driver {
	case DriverFilesystem:
		return NewFilesystem(opts.FSRoot)
	case DriverMemory:
		return NewMemory(), nil
	case DriverS3:
		return NewS3(ctx, opts.S3)
	default:
		return nil, fmt.Errorf("blob.Open: unknown driver %q", opts.Driver)
	}
}
