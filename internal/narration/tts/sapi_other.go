//go:build !windows

package tts

func newSAPIEngine(Config) (Engine, error) {
	return nil, ErrUnsupported
}
