//go:build !headless

package input

import (
	"github.com/go-vgo/robotgo"
)

type robotBackend struct{}

func newBackend() backend {
	return robotBackend{}
}

func (robotBackend) Move(x, y int) error {
	robotgo.Move(x, y)
	return nil
}

func (robotBackend) Click(button string) error {
	robotgo.Click(button, false)
	return nil
}

func (robotBackend) KeyDown(key string) error {
	return robotgo.KeyToggle(key, "down")
}

func (robotBackend) KeyUp(key string) error {
	return robotgo.KeyToggle(key, "up")
}

func (robotBackend) KeyTap(key string) error {
	return robotgo.KeyTap(key)
}

func (robotBackend) Type(text string) error {
	robotgo.TypeStr(text)
	return nil
}

func (robotBackend) Scroll(clicks int) error {
	if clicks > 0 {
		robotgo.ScrollDir(clicks, "up")
	} else {
		robotgo.ScrollDir(-clicks, "down")
	}
	return nil
}
