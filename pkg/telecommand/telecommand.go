// Package telecommand implements the L11 telecommand pipeline:
// validate -> authorize -> accept (+ack) -> execute -> completion ack,
// with a fixed built-in handler table and a safe-mode allow-list.
// Grounded on original_source/flight/comms/telecommand.c
// (telecommand_init's built-in handlers and safe-list,
// telecommand_process, telecommand_validate, telecommand_authorize).
//
// Authorization for Elevated/Critical commands is verified with a
// BLAKE2b keyed MAC with a 16-byte digest (golang.org/x/crypto/blake2b),
// computed over the command's application data and appended to it,
// resolving telecommand_verify_auth's unfinished stub in the
// original reference: when no key has been configured the system
// fails open (matches the original's placeholder behavior, since a
// ground station cannot be locked out before its key is provisioned);
// once a key is configured, a missing or mismatched MAC is rejected.
package telecommand

import (
	"sync"

	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"

	"github.com/TheusHen/OpenFSW/pkg/ccsds"
	"github.com/TheusHen/OpenFSW/pkg/status"
)

// AuthLevel orders the authorization tiers a handler may require.
type AuthLevel uint8

const (
	AuthNone AuthLevel = iota
	AuthBasic
	AuthElevated
	AuthCritical
)

// MACLen is the truncated BLAKE2b keyed-MAC length appended to
// Elevated+ commands.
const MACLen = 16

// Handler executes one telecommand's payload, returning its outcome code.
type Handler func(data []byte, nowMs uint32) status.Code

type handlerEntry struct {
	inUse   bool
	service uint8
	subtype uint8
	auth    AuthLevel
	fn      Handler
}

type serviceKey struct {
	service uint8
	subtype uint8
}

// MaxHandlers is the fixed capacity of the handler table.
const MaxHandlers = 16

// AckSink receives acceptance/completion acknowledgement TM packets;
// normally satisfied by *telemetry.Pipeline.
type AckSink interface {
	SendEvent(apid uint16, coarseTime uint32, payload []byte) bool
}

// ModeProvider reports whether the system is currently in Safe mode,
// gating the safe-list check without importing the mode package.
type ModeProvider interface {
	InSafeMode() bool
}

// Pipeline is the mutex-guarded telecommand subsystem.
type Pipeline struct {
	mu       sync.Mutex
	handlers [MaxHandlers]handlerEntry
	safeList map[serviceKey]bool
	authKey  []byte

	ackAPID uint16
	acks    AckSink
	mp      ModeProvider
	log     *zap.Logger
}

// New returns a Pipeline with the built-in handlers and safe-list
// registered, matching telecommand_init.
func New(acks AckSink, ackAPID uint16, mp ModeProvider, log *zap.Logger) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	p := &Pipeline{
		safeList: make(map[serviceKey]bool),
		acks:     acks,
		ackAPID:  ackAPID,
		mp:       mp,
		log:      log,
	}
	p.registerBuiltins()
	return p
}

// SetAuthKey configures the shared key used to verify Elevated+
// command MACs. Passing nil clears it back to the fail-open state.
func (p *Pipeline) SetAuthKey(key []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.authKey = append([]byte(nil), key...)
}

// RegisterHandler adds a handler for (service, subtype) at the given
// auth level. Returns false if the table is full.
func (p *Pipeline) RegisterHandler(service, subtype uint8, auth AuthLevel, fn Handler) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.handlers {
		if !p.handlers[i].inUse {
			p.handlers[i] = handlerEntry{inUse: true, service: service, subtype: subtype, auth: auth, fn: fn}
			return true
		}
	}
	return false
}

// AllowInSafeMode adds (service, subtype) to the safe-mode allow-list.
func (p *Pipeline) AllowInSafeMode(service, subtype uint8) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.safeList[serviceKey{service, subtype}] = true
}

func (p *Pipeline) lookup(service, subtype uint8) (handlerEntry, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.handlers {
		if p.handlers[i].inUse && p.handlers[i].service == service && p.handlers[i].subtype == subtype {
			return p.handlers[i], true
		}
	}
	return handlerEntry{}, false
}

// Validate checks CRC integrity and that a handler exists for the
// packet's (service, subtype), mirroring telecommand_validate.
func (p *Pipeline) Validate(pkt []byte) status.Code {
	if !ccsds.VerifyCRC(pkt) {
		return status.Crc
	}
	if len(pkt) < ccsds.PrimaryHeaderLen+ccsds.TCSecondaryHeaderLen+ccsds.CRCLen {
		return status.InvalidParam
	}
	sh, err := ccsds.DecodeTCSecondaryHeader(pkt[ccsds.PrimaryHeaderLen:])
	if err != nil {
		return status.InvalidParam
	}
	if _, ok := p.lookup(sh.Service, sh.Subtype); !ok {
		return status.NotFound
	}
	return status.OK
}

// Authorize applies the safe-mode allow-list and, for Elevated+
// handlers, the keyed-MAC check, mirroring telecommand_authorize /
// telecommand_verify_auth.
func (p *Pipeline) Authorize(pkt []byte, sh ccsds.TCSecondaryHeader, entry handlerEntry) status.Code {
	if p.mp != nil && p.mp.InSafeMode() {
		p.mu.Lock()
		allowed := p.safeList[serviceKey{sh.Service, sh.Subtype}]
		p.mu.Unlock()
		if !allowed {
			return status.Permission
		}
	}

	if entry.auth < AuthElevated {
		return status.OK
	}

	p.mu.Lock()
	key := p.authKey
	p.mu.Unlock()
	if len(key) == 0 {
		return status.OK
	}

	if len(pkt) < ccsds.PrimaryHeaderLen+ccsds.TCSecondaryHeaderLen+ccsds.CRCLen {
		return status.Permission
	}
	data := pkt[ccsds.PrimaryHeaderLen+ccsds.TCSecondaryHeaderLen : len(pkt)-ccsds.CRCLen]
	if len(data) < MACLen {
		return status.Permission
	}
	command := data[:len(data)-MACLen]
	mac := data[len(data)-MACLen:]
	if !verifyMAC(key, command, mac) {
		return status.Permission
	}
	return status.OK
}

func verifyMAC(key, data, mac []byte) bool {
	h, err := blake2b.New(MACLen, key)
	if err != nil {
		return false
	}
	h.Write(data)
	sum := h.Sum(nil)
	if len(sum) != len(mac) {
		return false
	}
	var diff byte
	for i := range sum {
		diff |= sum[i] ^ mac[i]
	}
	return diff == 0
}

// SignMAC computes the 16-byte BLAKE2b keyed MAC a ground station would
// append to an Elevated+ command's data, exposed for tests and tooling.
func SignMAC(key, data []byte) []byte {
	h, err := blake2b.New(MACLen, key)
	if err != nil {
		return nil
	}
	h.Write(data)
	return h.Sum(nil)
}

// Process runs the full validate->authorize->accept->execute->complete
// pipeline for one received TC packet, mirroring telecommand_process.
func (p *Pipeline) Process(pkt []byte, nowMs, coarseTime uint32) status.Code {
	code := p.Validate(pkt)
	if !code.Ok() {
		p.log.Warn("tc rejected at validate", zap.String("code", code.String()))
		return code
	}

	sh, _ := ccsds.DecodeTCSecondaryHeader(pkt[ccsds.PrimaryHeaderLen:])
	entry, _ := p.lookup(sh.Service, sh.Subtype)

	code = p.Authorize(pkt, sh, entry)
	if !code.Ok() {
		p.log.Warn("tc rejected at authorize", zap.String("code", code.String()))
		return code
	}

	p.sendAck(coarseTime, sh.Service, 1, true) // acceptance ack

	data := pkt[ccsds.PrimaryHeaderLen+ccsds.TCSecondaryHeaderLen : len(pkt)-ccsds.CRCLen]
	if entry.auth >= AuthElevated && len(data) >= MACLen {
		data = data[:len(data)-MACLen]
	}

	result := status.OK
	if entry.fn != nil {
		result = entry.fn(data, nowMs)
	}

	p.sendAck(coarseTime, sh.Service, 7, result.Ok())
	return result
}

// sendAck builds and enqueues a Service-1 verification report TM
// packet: subtype 1/2 for acceptance success/failure, 7/8 for
// execution completion success/failure, matching telecommand.c.
func (p *Pipeline) sendAck(coarseTime uint32, commandedService uint8, baseSubtype uint8, ok bool) {
	if p.acks == nil {
		return
	}
	subtype := baseSubtype
	if !ok {
		subtype++
	}
	_ = p.acks.SendEvent(p.ackAPID, coarseTime, []byte{commandedService, subtype})
}

// registerBuiltins installs the two handlers with no external
// dependencies (Ping, ConnectionTest) and the full safe-mode
// allow-list from telecommand_init. ModeChange (8/1), SystemReset
// (8/4), EnableHk (3/5), DisableHk (3/6) and TimeSync (9/1) need
// references to the mode manager, platform hooks, telemetry pipeline
// and clock, so the supervisor registers those via RegisterHandler
// once every subsystem exists.
func (p *Pipeline) registerBuiltins() {
	p.RegisterHandler(17, 1, AuthNone, handlePing)
	p.RegisterHandler(17, 2, AuthNone, handleConnectionTest)
	p.AllowInSafeMode(17, 1)
	p.AllowInSafeMode(17, 2)
	p.AllowInSafeMode(3, 5)
	p.AllowInSafeMode(3, 6)
}

func handlePing(data []byte, nowMs uint32) status.Code {
	return status.OK
}

func handleConnectionTest(data []byte, nowMs uint32) status.Code {
	return status.OK
}
