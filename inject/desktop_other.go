//go:build !windows || !(amd64 || arm64)

package inject

type noDesktop struct{}

// NewDesktop returns a desktop that never finds a target, so sends are no-ops.
// 32-bit Windows builds use it too: the INPUT layout is only declared for 64-bit.
func NewDesktop() Desktop { return noDesktop{} }

func (noDesktop) FindWindow(string) (Window, bool, error) { return 0, false, ErrUnsupported }
func (noDesktop) ForceForeground(Window) error            { return ErrUnsupported }
func (noDesktop) KeyDown(uint16) error                    { return ErrUnsupported }
func (noDesktop) KeyUp(uint16) error                      { return ErrUnsupported }
func (noDesktop) Unicode(uint16, bool) error              { return ErrUnsupported }
