package ccsds

import (
	"encoding/binary"
	"errors"
	"sync"
)

// PrimaryHeaderLen is the fixed 6-byte CCSDS primary header size.
const PrimaryHeaderLen = 6

// TMSecondaryHeaderLen / TCSecondaryHeaderLen are the fixed ECSS-PUS
// secondary header sizes used by this mission profile.
const (
	TMSecondaryHeaderLen = 10
	TCSecondaryHeaderLen = 10
	CRCLen               = 2
)

// PacketType distinguishes TM (telemetry) from TC (telecommand).
type PacketType uint8

const (
	TypeTM PacketType = 0
	TypeTC PacketType = 1
)

// SeqFlags encodes CCSDS segmentation; this mission profile only ever
// sends unsegmented packets.
const SeqFlagsUnsegmented uint8 = 0b11

// PrimaryHeader is the 6-byte CCSDS Space Packet primary header.
type PrimaryHeader struct {
	Version       uint8 // 3 bits
	Type          PacketType
	SecHdrFlag    bool
	APID          uint16 // 11 bits
	SeqFlags      uint8  // 2 bits
	SeqCount      uint16 // 14 bits
	DataLenMinus1 uint16 // length of data after primary header, minus 1
}

// Encode packs h into its 6-byte wire form.
func (h PrimaryHeader) Encode() [PrimaryHeaderLen]byte {
	var buf [PrimaryHeaderLen]byte
	var b0 uint8 = (h.Version & 0x7) << 5
	if h.Type == TypeTC {
		b0 |= 0x10
	}
	if h.SecHdrFlag {
		b0 |= 0x08
	}
	b0 |= uint8((h.APID >> 8) & 0x07)
	buf[0] = b0
	buf[1] = uint8(h.APID & 0xFF)
	buf[2] = ((h.SeqFlags & 0x3) << 6) | uint8((h.SeqCount>>8)&0x3F)
	buf[3] = uint8(h.SeqCount & 0xFF)
	binary.BigEndian.PutUint16(buf[4:6], h.DataLenMinus1)
	return buf
}

// DecodePrimaryHeader parses the first 6 bytes of buf.
func DecodePrimaryHeader(buf []byte) (PrimaryHeader, error) {
	if len(buf) < PrimaryHeaderLen {
		return PrimaryHeader{}, errors.New("ccsds: buffer shorter than primary header")
	}
	var h PrimaryHeader
	h.Version = (buf[0] >> 5) & 0x7
	if buf[0]&0x10 != 0 {
		h.Type = TypeTC
	} else {
		h.Type = TypeTM
	}
	h.SecHdrFlag = buf[0]&0x08 != 0
	h.APID = (uint16(buf[0]&0x07) << 8) | uint16(buf[1])
	h.SeqFlags = (buf[2] >> 6) & 0x3
	h.SeqCount = (uint16(buf[2]&0x3F) << 8) | uint16(buf[3])
	h.DataLenMinus1 = binary.BigEndian.Uint16(buf[4:6])
	return h, nil
}

// TMSecondaryHeader is the ECSS-PUS telemetry secondary header:
// u32 coarse time | u16 fine time | u8 service | u8 subtype | u8 dest |
// u8 spare = 10 bytes.
type TMSecondaryHeader struct {
	CoarseTime uint32
	FineTime   uint16
	Service    uint8
	Subtype    uint8
	Dest       uint8
	Spare      uint8
}

func (h TMSecondaryHeader) Encode() [TMSecondaryHeaderLen]byte {
	var buf [TMSecondaryHeaderLen]byte
	binary.BigEndian.PutUint32(buf[0:4], h.CoarseTime)
	binary.BigEndian.PutUint16(buf[4:6], h.FineTime)
	buf[6] = h.Service
	buf[7] = h.Subtype
	buf[8] = h.Dest
	buf[9] = h.Spare
	return buf
}

func DecodeTMSecondaryHeader(buf []byte) (TMSecondaryHeader, error) {
	if len(buf) < TMSecondaryHeaderLen {
		return TMSecondaryHeader{}, errors.New("ccsds: buffer shorter than TM secondary header")
	}
	return TMSecondaryHeader{
		CoarseTime: binary.BigEndian.Uint32(buf[0:4]),
		FineTime:   binary.BigEndian.Uint16(buf[4:6]),
		Service:    buf[6],
		Subtype:    buf[7],
		Dest:       buf[8],
		Spare:      buf[9],
	}, nil
}

// TCSecondaryHeader is the ECSS-PUS telecommand secondary header:
// u8 service | u8 subtype | u8 source | u8 spare | u32 scheduled time |
// u16 ack flags = 10 bytes.
type TCSecondaryHeader struct {
	Service       uint8
	Subtype       uint8
	Source        uint8
	Spare         uint8
	ScheduledTime uint32
	AckFlags      uint16
}

func (h TCSecondaryHeader) Encode() [TCSecondaryHeaderLen]byte {
	var buf [TCSecondaryHeaderLen]byte
	buf[0] = h.Service
	buf[1] = h.Subtype
	buf[2] = h.Source
	buf[3] = h.Spare
	binary.BigEndian.PutUint32(buf[4:8], h.ScheduledTime)
	binary.BigEndian.PutUint16(buf[8:10], h.AckFlags)
	return buf
}

func DecodeTCSecondaryHeader(buf []byte) (TCSecondaryHeader, error) {
	if len(buf) < TCSecondaryHeaderLen {
		return TCSecondaryHeader{}, errors.New("ccsds: buffer shorter than TC secondary header")
	}
	return TCSecondaryHeader{
		Service:       buf[0],
		Subtype:       buf[1],
		Source:        buf[2],
		Spare:         buf[3],
		ScheduledTime: binary.BigEndian.Uint32(buf[4:8]),
		AckFlags:      binary.BigEndian.Uint16(buf[8:10]),
	}, nil
}

// SequenceCounter is a mutex-protected, wrapping 14-bit APID sequence
// counter, mirroring ccsds_next_sequence.
type SequenceCounter struct {
	mu  sync.Mutex
	seq uint16
}

// Next returns the next sequence count, wrapping at 14 bits (0x3FFF).
func (c *SequenceCounter) Next() uint16 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq = (c.seq + 1) & 0x3FFF
	return c.seq
}

// BuildTM assembles a complete TM packet: primary header, TM secondary
// header, user data and a trailing CRC-16/CCITT-FALSE computed over
// everything preceding it, matching ccsds_build_tm_header's framing.
func BuildTM(apid uint16, seq uint16, sh TMSecondaryHeader, data []byte) []byte {
	dataLen := TMSecondaryHeaderLen + len(data) + CRCLen
	ph := PrimaryHeader{
		Version:       0,
		Type:          TypeTM,
		SecHdrFlag:    true,
		APID:          apid,
		SeqFlags:      SeqFlagsUnsegmented,
		SeqCount:      seq,
		DataLenMinus1: uint16(dataLen - 1),
	}
	out := make([]byte, 0, PrimaryHeaderLen+dataLen)
	phBuf := ph.Encode()
	out = append(out, phBuf[:]...)
	shBuf := sh.Encode()
	out = append(out, shBuf[:]...)
	out = append(out, data...)
	crc := CRC16(out)
	out = append(out, byte(crc>>8), byte(crc))
	return out
}

// BuildTC assembles a complete TC packet analogous to BuildTM, matching
// ccsds_build_tc_header's framing.
func BuildTC(apid uint16, seq uint16, sh TCSecondaryHeader, data []byte) []byte {
	dataLen := TCSecondaryHeaderLen + len(data) + CRCLen
	ph := PrimaryHeader{
		Version:       0,
		Type:          TypeTC,
		SecHdrFlag:    true,
		APID:          apid,
		SeqFlags:      SeqFlagsUnsegmented,
		SeqCount:      seq,
		DataLenMinus1: uint16(dataLen - 1),
	}
	out := make([]byte, 0, PrimaryHeaderLen+dataLen)
	phBuf := ph.Encode()
	out = append(out, phBuf[:]...)
	shBuf := sh.Encode()
	out = append(out, shBuf[:]...)
	out = append(out, data...)
	crc := CRC16(out)
	out = append(out, byte(crc>>8), byte(crc))
	return out
}

// VerifyCRC reports whether the trailing 2 bytes of pkt are a valid
// CRC-16/CCITT-FALSE over everything preceding them.
func VerifyCRC(pkt []byte) bool {
	if len(pkt) < CRCLen {
		return false
	}
	body := pkt[:len(pkt)-CRCLen]
	want := CRC16(body)
	got := uint16(pkt[len(pkt)-2])<<8 | uint16(pkt[len(pkt)-1])
	return want == got
}
