//go:build !headless

package hotkey

import (
	"time"

	hook "github.com/robotn/gohook"
)

const hookStopTimeout = time.Second

type gohookBackend struct {
	done chan bool
}

func newBackend() backend {
	return &gohookBackend{}
}

func (b *gohookBackend) start(bindings []Binding, fire func(Action)) error {
	for _, binding := range bindings {
		action := binding.Action
		hook.Register(hook.KeyDown, binding.Keys, func(hook.Event) {
			fire(action)
		})
	}
	b.done = hook.Process(hook.Start())
	return nil
}

func (b *gohookBackend) stop() {
	hook.End()
	select {
	case <-b.done:
	case <-time.After(hookStopTimeout):
	}
}
