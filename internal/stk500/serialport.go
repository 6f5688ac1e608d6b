package stk500

import (
	"fmt"
	"syscall"

	"golang.org/x/sys/unix"
)

// baudToConstant maps the handful of bit rates STK500 programmers actually
// use to the termios speed constant golang.org/x/sys/unix exposes for it.
var baudToConstant = map[int]uint32{
	9600:   unix.B9600,
	19200:  unix.B19200,
	38400:  unix.B38400,
	57600:  unix.B57600,
	115200: unix.B115200,
}

// SerialPort is a raw (non-canonical, no echo, 8N1) serial line transport
// for the STK500 bridge, opened and configured the same way the teacher's
// TapDevice opens and ioctls a Linux TUN/TAP fd: a plain syscall.Open
// followed by a raw unix.IoctlXxx call against the resulting fd, applied
// here to a tty instead of a network tap.
type SerialPort struct {
	fd   int
	path string
}

// OpenSerialPort opens path (e.g. "/dev/ttyACM0") and configures it for raw
// 8N1 communication at the given baud rate.
func OpenSerialPort(path string, baud int) (*SerialPort, error) {
	fd, err := syscall.Open(path, syscall.O_RDWR|syscall.O_NOCTTY, 0)
	if err != nil {
		return nil, fmt.Errorf("stk500: failed to open %s: %w", path, err)
	}

	speed, ok := baudToConstant[baud]
	if !ok {
		syscall.Close(fd)
		return nil, fmt.Errorf("stk500: unsupported baud rate %d", baud)
	}

	t, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		syscall.Close(fd)
		return nil, fmt.Errorf("stk500: TCGETS failed for %s: %w", path, err)
	}

	t.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP | unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON
	t.Oflag &^= unix.OPOST
	t.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	t.Cflag &^= unix.CSIZE | unix.PARENB | unix.CSTOPB
	t.Cflag |= unix.CS8 | unix.CREAD | unix.CLOCAL
	t.Ispeed = speed
	t.Ospeed = speed
	t.Cc[unix.VMIN] = 1
	t.Cc[unix.VTIME] = 0

	if err := unix.IoctlSetTermios(fd, unix.TCSETS, t); err != nil {
		syscall.Close(fd)
		return nil, fmt.Errorf("stk500: TCSETS failed for %s: %w", path, err)
	}

	return &SerialPort{fd: fd, path: path}, nil
}

// ReadByte reads exactly one byte, blocking until it arrives (VMIN=1,
// VTIME=0 in the termios settings above).
func (p *SerialPort) ReadByte() (byte, error) {
	var buf [1]byte
	n, err := syscall.Read(p.fd, buf[:])
	if err != nil {
		return 0, fmt.Errorf("stk500: read from %s failed: %w", p.path, err)
	}
	if n == 0 {
		return 0, fmt.Errorf("stk500: read from %s returned EOF", p.path)
	}
	return buf[0], nil
}

// Write writes every byte of data, matching the bridge's "write exactly N
// bytes or fail" transport contract.
func (p *SerialPort) Write(data []byte) error {
	written := 0
	for written < len(data) {
		n, err := syscall.Write(p.fd, data[written:])
		if err != nil {
			return fmt.Errorf("stk500: write to %s failed: %w", p.path, err)
		}
		written += n
	}
	return nil
}

// Close closes the underlying file descriptor.
func (p *SerialPort) Close() error {
	if p.fd == 0 {
		return nil
	}
	return syscall.Close(p.fd)
}
