package ccsds

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCRC16KnownVector(t *testing.T) {
	// "123456789" is the standard CRC-16/CCITT-FALSE check vector,
	// expected residual 0x29B1.
	got := CRC16([]byte("123456789"))
	assert.Equal(t, uint16(0x29B1), got)
}

func TestPrimaryHeaderRoundTrip(t *testing.T) {
	h := PrimaryHeader{
		Version:       0,
		Type:          TypeTC,
		SecHdrFlag:    true,
		APID:          0x123,
		SeqFlags:      SeqFlagsUnsegmented,
		SeqCount:      0x2ABC & 0x3FFF,
		DataLenMinus1: 42,
	}
	buf := h.Encode()
	got, err := DecodePrimaryHeader(buf[:])
	require.NoError(t, err)
	assert.Equal(t, h, got)
}

func TestSequenceCounterWraps(t *testing.T) {
	var c SequenceCounter
	var last uint16
	for i := 0; i < 0x3FFF+5; i++ {
		last = c.Next()
	}
	assert.LessOrEqual(t, last, uint16(0x3FFF))
}

func TestBuildTMVerifiesCRC(t *testing.T) {
	sh := TMSecondaryHeader{CoarseTime: 12345, Service: 3, Subtype: 25}
	pkt := BuildTM(1, 1, sh, []byte{0xDE, 0xAD, 0xBE, 0xEF})
	assert.True(t, VerifyCRC(pkt))

	pkt[len(pkt)-1] ^= 0xFF
	assert.False(t, VerifyCRC(pkt))
}

func TestBuildTCRoundTripSecondaryHeader(t *testing.T) {
	sh := TCSecondaryHeader{Service: 8, Subtype: 1, Source: 7, ScheduledTime: 99, AckFlags: 0x0F}
	pkt := BuildTC(2, 1, sh, []byte{0x01})
	require.True(t, VerifyCRC(pkt))

	got, err := DecodeTCSecondaryHeader(pkt[PrimaryHeaderLen:])
	require.NoError(t, err)
	assert.Equal(t, sh, got)
}

func TestBuildTCDataLenMatchesSecondaryHeaderPlusDataPlusCRC(t *testing.T) {
	// 10-byte secondary header + 3 bytes of data + 2-byte CRC - 1 = 14,
	// the primary header's packet_length field.
	sh := TCSecondaryHeader{Service: 8, Subtype: 1}
	pkt := BuildTC(2, 1, sh, []byte{0x01, 0x02, 0x03})
	ph, err := DecodePrimaryHeader(pkt)
	require.NoError(t, err)
	assert.Equal(t, uint16(14), ph.DataLenMinus1)
	assert.Equal(t, TCSecondaryHeaderLen+3+CRCLen, len(pkt)-PrimaryHeaderLen)
}
