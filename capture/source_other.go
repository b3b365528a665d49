//go:build !windows && !(linux && cgo)

package capture

type unsupportedSource struct{}

func New() Source {
	return unsupportedSource{}
}

func (unsupportedSource) Name() string { return "unsupported" }

func (unsupportedSource) Run(Handler) error { return ErrUnsupportedPlatform }

func (unsupportedSource) Stop() error { return nil }
