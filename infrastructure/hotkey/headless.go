//go:build headless

package hotkey

type headlessBackend struct{}

func newBackend() backend {
	return headlessBackend{}
}

func (headlessBackend) start([]Binding, func(Action)) error { return ErrUnavailable }
func (headlessBackend) stop()                               {}
