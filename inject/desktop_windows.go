//go:build windows && (amd64 || arm64)

package inject

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32 = windows.NewLazySystemDLL("user32.dll")

	procAttachThreadInput   = user32.NewProc("AttachThreadInput")
	procShowWindow          = user32.NewProc("ShowWindow")
	procIsIconic            = user32.NewProc("IsIconic")
	procSetForegroundWindow = user32.NewProc("SetForegroundWindow")
	procBringWindowToTop    = user32.NewProc("BringWindowToTop")
	procSendInput           = user32.NewProc("SendInput")
	procMapVirtualKeyW      = user32.NewProc("MapVirtualKeyW")
)

const (
	swRestore = 9

	inputKeyboard    = 1
	keyeventfKeyUp   = 0x0002
	keyeventfUnicode = 0x0004

	mapvkVKToVSC = 0
)

type keyboardInput struct {
	WVK         uint16
	WScan       uint16
	DwFlags     uint32
	Time        uint32
	DwExtraInfo uintptr
}

// input mirrors INPUT on 64-bit Windows (40 bytes): the union is sized by
// MOUSEINPUT. The build tag keeps this file off 32-bit targets.
type input struct {
	Type  uint32
	_pad1 uint32
	Ki    keyboardInput
	_pad2 uint64
}

type winDesktop struct{}

// NewDesktop returns the Win32 implementation.
func NewDesktop() Desktop { return winDesktop{} }

type enumState struct {
	process string
	found   windows.HWND
}

var (
	enumOnce     sync.Once
	enumCallback uintptr
	// EnumWindows calls back on the calling thread; one enumeration at a time
	// keeps the shared callback simple.
	enumMu sync.Mutex
)

func enumProc(h uintptr, param uintptr) uintptr {
	st := (*enumState)(unsafe.Pointer(param))
	hwnd := windows.HWND(h)
	if !windows.IsWindowVisible(hwnd) {
		return 1
	}
	if strings.EqualFold(processName(hwnd), st.process) {
		st.found = hwnd
		return 0
	}
	return 1
}

func (winDesktop) FindWindow(process string) (Window, bool, error) {
	enumOnce.Do(func() { enumCallback = windows.NewCallback(enumProc) })

	enumMu.Lock()
	defer enumMu.Unlock()

	st := &enumState{process: process}
	err := windows.EnumWindows(enumCallback, unsafe.Pointer(st))
	if st.found != 0 {
		return Window(st.found), true, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("EnumWindows: %w", err)
	}
	return 0, false, nil
}

// processName is the executable base name without extension, or "" if the
// process cannot be queried.
func processName(hwnd windows.HWND) string {
	var pid uint32
	if _, err := windows.GetWindowThreadProcessId(hwnd, &pid); err != nil || pid == 0 {
		return ""
	}
	h, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, pid)
	if err != nil {
		return ""
	}
	defer windows.CloseHandle(h)

	buf := make([]uint16, windows.MAX_LONG_PATH)
	size := uint32(len(buf))
	if err := windows.QueryFullProcessImageName(h, 0, &buf[0], &size); err != nil {
		return ""
	}
	base := filepath.Base(windows.UTF16ToString(buf[:size]))
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func (winDesktop) ForceForeground(w Window) error {
	// Thread input attachment belongs to the OS thread, so attach and release
	// must run on the same one.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	hwnd := windows.HWND(w)
	targetThread, err := windows.GetWindowThreadProcessId(hwnd, nil)
	if err != nil {
		return fmt.Errorf("target thread: %w", err)
	}
	fgThread, _ := windows.GetWindowThreadProcessId(windows.GetForegroundWindow(), nil)

	release := attachInput(attachThreadInput, windows.GetCurrentThreadId(), fgThread, targetThread)
	defer release()

	if r, _, _ := procIsIconic.Call(uintptr(hwnd)); r != 0 {
		procShowWindow.Call(uintptr(hwnd), swRestore)
	}
	r, _, callErr := procSetForegroundWindow.Call(uintptr(hwnd))
	procBringWindowToTop.Call(uintptr(hwnd))
	if r == 0 {
		return fmt.Errorf("SetForegroundWindow: %w", callErr)
	}
	return nil
}

func attachThreadInput(from, to uint32, attach bool) bool {
	var flag uintptr
	if attach {
		flag = 1
	}
	r, _, _ := procAttachThreadInput.Call(uintptr(from), uintptr(to), flag)
	return r != 0
}

func (winDesktop) KeyDown(vk uint16) error { return sendVK(vk, 0) }

func (winDesktop) KeyUp(vk uint16) error { return sendVK(vk, keyeventfKeyUp) }

func (winDesktop) Unicode(unit uint16, up bool) error {
	flags := uint32(keyeventfUnicode)
	if up {
		flags |= keyeventfKeyUp
	}
	return sendInput(input{
		Type: inputKeyboard,
		Ki:   keyboardInput{WScan: unit, DwFlags: flags},
	})
}

func sendVK(vk uint16, flags uint32) error {
	sc, _, _ := procMapVirtualKeyW.Call(uintptr(vk), mapvkVKToVSC)
	return sendInput(input{
		Type: inputKeyboard,
		Ki:   keyboardInput{WVK: vk, WScan: uint16(sc), DwFlags: flags},
	})
}

func sendInput(in input) error {
	n, _, err := procSendInput.Call(1, uintptr(unsafe.Pointer(&in)), unsafe.Sizeof(in))
	if n == 0 {
		if err == nil || errors.Is(err, windows.ERROR_SUCCESS) {
			err = errors.New("input was blocked")
		}
		return fmt.Errorf("SendInput: %w", err)
	}
	return nil
}
