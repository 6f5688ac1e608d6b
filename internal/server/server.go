// Package server implements the lockstep protocol's I/O task / simulation
// task split described for this core: one goroutine owns the transport
// (reads framed packets, decodes them into commands, writes replies back),
// while a single simulation goroutine owns every session's McuState and is
// never touched concurrently, the same "one task drives I/O, one task
// drives state" shape the teacher's VirtualMachine/VCPU split uses for its
// vcpu run loop versus its device I/O bus.
package server

import (
	"errors"
	"io"
	"log"

	"github.com/Kinin-Code-Offical/robotwin-studio-sub000/internal/mcuavr"
	"github.com/Kinin-Code-Offical/robotwin-studio-sub000/internal/session"
	"github.com/Kinin-Code-Offical/robotwin-studio-sub000/internal/wire"
)

// Error codes reported in an ErrorPayload's Code field. These are this
// core's own numbering; the protocol does not mandate specific values.
const (
	ErrCodeLoadRejected     = 1
	ErrCodeMemoryPatchFault = 2
)

// command is one decoded inbound packet, queued for the simulation task.
type command struct {
	msgType  wire.MessageType
	header   wire.Header
	payload  []byte
}

// outboundFrame is a fully-formed reply, queued for the I/O task's writer.
type outboundFrame struct {
	msgType wire.MessageType
	flags   uint16
	seq     uint32
	payload []byte
}

// commandQueueCapacity bounds the in-memory command queue per §4.5's
// "bounded multi-producer/single-consumer structure" requirement; this
// core has exactly one producer (the read loop) but keeps the same shape.
const commandQueueCapacity = 64

// Server wires one connection (a named pipe, in production) to a session
// registry and runs the I/O/simulation task split until the connection
// closes or a framing error ends it.
type Server struct {
	conn     io.ReadWriter
	registry *session.Registry

	commands chan command
	outbox   chan outboundFrame

	Debug bool
}

// New builds a server for one connection, backed by registry.
func New(conn io.ReadWriter, registry *session.Registry) *Server {
	return &Server{
		conn:     conn,
		registry: registry,
		commands: make(chan command, commandQueueCapacity),
		outbox:   make(chan outboundFrame, commandQueueCapacity),
	}
}

// Run blocks until the connection's read loop ends (EOF, framing error, or
// an I/O error), at which point it tears down the simulation loop and
// returns the terminating error.
func (s *Server) Run() error {
	readErr := make(chan error, 1)
	writeErr := make(chan error, 1)
	done := make(chan struct{})

	go s.readLoop(readErr, done)
	go s.writeLoop(writeErr, done)

	// The simulation task drains commands until the read loop closes the
	// channel, which it only does after it has already queued its
	// terminating error onto readErr (buffered, so the send never blocks).
	s.simulationLoop(done)
	return <-readErr
}

func (s *Server) readLoop(errCh chan<- error, done chan struct{}) {
	defer close(s.commands)
	for {
		pkt, err := wire.ReadPacket(s.conn)
		if err != nil {
			if s.Debug {
				log.Printf("server: read loop ending: %v", err)
			}
			errCh <- err
			close(done)
			return
		}
		s.commands <- command{msgType: wire.MessageType(pkt.Header.Type), header: pkt.Header, payload: pkt.Payload}
	}
}

func (s *Server) writeLoop(errCh chan<- error, done chan struct{}) {
	for {
		select {
		case frame, ok := <-s.outbox:
			if !ok {
				return
			}
			if err := wire.WritePacket(s.conn, frame.msgType, frame.flags, frame.seq, frame.payload); err != nil {
				if s.Debug {
					log.Printf("server: write failed: %v", err)
				}
				errCh <- err
				return
			}
		case <-done:
			return
		}
	}
}

// simulationLoop is the single task permitted to touch session state,
// draining commands until the read loop closes the channel.
func (s *Server) simulationLoop(done chan struct{}) {
	defer close(s.outbox)
	for cmd := range s.commands {
		s.dispatch(cmd)
	}
	_ = done
}

func (s *Server) dispatch(cmd command) {
	switch cmd.msgType {
	case wire.MsgHello:
		s.handleHello(cmd)
	case wire.MsgLoadBvm:
		s.handleLoadBvm(cmd)
	case wire.MsgStep:
		s.handleStep(cmd)
	case wire.MsgMemoryPatch:
		s.handleMemoryPatch(cmd)
	default:
		if s.Debug {
			log.Printf("server: ignoring unrecognized message type %d", cmd.msgType)
		}
	}
}

func (s *Server) handleHello(cmd command) {
	hello, err := wire.UnmarshalHello(cmd.payload)
	if err != nil {
		if s.Debug {
			log.Printf("server: malformed Hello: %v", err)
		}
		return
	}
	profile := mcuavr.DefaultBoardProfile()
	ack := wire.HelloAckPayload{
		Flags:       hello.Flags,
		PinCount:    uint32(profile.EffectivePinCount(wire.PinCount)),
		BoardIDSize: wire.BoardIDSize,
		AnalogCount: wire.AnalogCount,
		FlashBytes:  uint32(profile.FlashBytes),
		SRAMBytes:   uint32(profile.SRAMBytes),
		EEPROMBytes: uint32(profile.EEPROMBytes),
		IOBytes:     uint32(profile.IOBytes),
		CPUHz:       uint32(profile.ClockHz),
	}
	s.outbox <- outboundFrame{msgType: wire.MsgHelloAck, seq: cmd.header.Sequence, payload: ack.Marshal()}
}

func (s *Server) handleLoadBvm(cmd command) {
	if len(cmd.payload) < wire.LoadBvmHeaderSize {
		return
	}
	header, err := wire.UnmarshalLoadBvmHeader(cmd.payload[:wire.LoadBvmHeaderSize])
	if err != nil {
		return
	}
	container := cmd.payload[wire.LoadBvmHeaderSize:]

	profile := mcuavr.LookupBoardProfile(header.BoardProfileString())
	sess := s.registry.EnsureProfile(header.BoardIDString(), profile)
	sess.Debug = s.Debug

	if _, err := sess.LoadFirmware(container); err != nil {
		errPayload := wire.NewErrorPayload(header.BoardIDString(), ErrCodeLoadRejected)
		s.outbox <- outboundFrame{msgType: wire.MsgError, seq: cmd.header.Sequence, payload: errPayload.Marshal()}
		return
	}
	status := sess.Status()
	s.outbox <- outboundFrame{msgType: wire.MsgStatus, seq: cmd.header.Sequence, payload: status.Marshal()}
}

func (s *Server) handleStep(cmd command) {
	step, err := wire.UnmarshalStep(cmd.payload)
	if err != nil {
		return
	}
	sess := s.registry.Get(step.BoardIDString())
	sess.Debug = s.Debug

	out, serial := sess.Step(step)
	s.outbox <- outboundFrame{msgType: wire.MsgOutputState, seq: cmd.header.Sequence, payload: out.Marshal()}

	for _, bytesOut := range serial {
		if len(bytesOut) > 0 {
			s.outbox <- outboundFrame{msgType: wire.MsgSerial, seq: cmd.header.Sequence, payload: bytesOut}
		}
	}
}

func (s *Server) handleMemoryPatch(cmd command) {
	if len(cmd.payload) < wire.MemoryPatchHeaderSize {
		return
	}
	header, err := wire.UnmarshalMemoryPatchHeader(cmd.payload[:wire.MemoryPatchHeaderSize])
	if err != nil {
		return
	}
	data := cmd.payload[wire.MemoryPatchHeaderSize:]
	sess := s.registry.Get(header.BoardIDString())

	if err := sess.PatchMemory(wire.MemoryType(header.MemoryType), header.Address, data); err != nil {
		errPayload := wire.NewErrorPayload(header.BoardIDString(), ErrCodeMemoryPatchFault)
		s.outbox <- outboundFrame{msgType: wire.MsgError, seq: cmd.header.Sequence, payload: errPayload.Marshal()}
		return
	}
	status := sess.Status()
	s.outbox <- outboundFrame{msgType: wire.MsgStatus, seq: cmd.header.Sequence, payload: status.Marshal()}
}

// ErrConnectionClosed names a clean disconnect. Run does not return it: a
// read loop that ends on EOF surfaces as a wrapped wire.ErrShortRead.
var ErrConnectionClosed = errors.New("server: connection closed")
