//go:build headless

package input

type headlessBackend struct{}

func newBackend() backend {
	return headlessBackend{}
}

func (headlessBackend) Move(x, y int) error       { return ErrNoDesktop }
func (headlessBackend) Click(button string) error { return ErrNoDesktop }
func (headlessBackend) KeyDown(key string) error  { return ErrNoDesktop }
func (headlessBackend) KeyUp(key string) error    { return ErrNoDesktop }
func (headlessBackend) KeyTap(key string) error   { return ErrNoDesktop }
func (headlessBackend) Type(text string) error    { return ErrNoDesktop }
func (headlessBackend) Scroll(clicks int) error   { return ErrNoDesktop }
