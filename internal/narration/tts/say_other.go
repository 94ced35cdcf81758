//go:build !darwin

package tts

func newSayEngine(Config) (Engine, error) {
	return nil, ErrUnsupported
}
