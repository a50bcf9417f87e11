//go:build hwserial

// Package platform: Serial is a bench-only Hooks backend that drives a
// real UART, grounded on the go.bug.st/serial usage in
// zetasuna-LoraFog/internal/device/serial.go and
// Thermoquad-heliostat/cmd/connection.go. It is not part of the
// default build: the actual flight target supplies its own BSP-backed
// Hooks, and this file exists to exercise a hardware-in-the-loop bench
// without pulling a real board support package into this module.
package platform

import (
	"sync"
	"time"

	"go.bug.st/serial"
)

// Serial drives DebugPutchar over a real serial port and polls a single
// status byte back for ResetGetCause, matching the framing a bench
// bridge firmware would use: one byte in, one byte out.
type Serial struct {
	mu     sync.Mutex
	port   serial.Port
	cause  ResetCause
	railMu sync.Mutex
	rails  [8]bool
}

// OpenSerial opens portName at baud and returns a Serial hooks backend.
func OpenSerial(portName string, baud int) (*Serial, error) {
	mode := &serial.Mode{
		BaudRate: baud,
		Parity:   serial.NoParity,
		DataBits: 8,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, err
	}
	return &Serial{port: port, cause: ResetUnknown}, nil
}

func (s *Serial) WatchdogKick() {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = s.port.Write([]byte{0x57}) // 'W'
}

func (s *Serial) ResetGetCause() ResetCause {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cause
}

// PollResetCause reads one status byte from the bridge and updates the
// cached cause. Called once at boot before the rest of the supervisor
// initializes, so it may block briefly.
func (s *Serial) PollResetCause(timeout time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.port.SetReadTimeout(timeout)
	buf := make([]byte, 1)
	n, err := s.port.Read(buf)
	if err != nil {
		return err
	}
	if n == 1 {
		s.cause = ResetCause(buf[0])
	}
	return nil
}

func (s *Serial) ResetSoftware() {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = s.port.Write([]byte{0x52}) // 'R'
}

func (s *Serial) ResetSubsystem(id SubsystemID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = s.port.Write([]byte{0x72, byte(id)}) // 'r', id
}

func (s *Serial) SafeModePinAsserted() bool {
	return false
}

func (s *Serial) PowerEnableRail(rail uint8) {
	s.railMu.Lock()
	defer s.railMu.Unlock()
	if int(rail) < len(s.rails) {
		s.rails[rail] = true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = s.port.Write([]byte{0x45, rail}) // 'E', rail
}

func (s *Serial) PowerDisableRail(rail uint8) {
	s.railMu.Lock()
	defer s.railMu.Unlock()
	if int(rail) < len(s.rails) {
		s.rails[rail] = false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = s.port.Write([]byte{0x44, rail}) // 'D', rail
}

func (s *Serial) DebugPutchar(b byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = s.port.Write([]byte{b})
}

func (s *Serial) TimeMsMonotonic() uint32 {
	return uint32(time.Now().UnixMilli())
}

func (s *Serial) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port.Close()
}

var _ Hooks = (*Serial)(nil)
