// Package record provides unit tests for command record encoding and decoding.
package record

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"testing"
)

func TestEncodeDecodePayloadRoundTrip(t *testing.T) {
	tests := []Record{
		Set("key", "value"),
		Set("", "value"),
		Set("key", ""),
		Remove("key"),
		Get("key"),
	}

	for _, want := range tests {
		t.Run(want.Key+"-"+string(rune('0'+want.Kind)), func(t *testing.T) {
			encoded := want.EncodePayload()
			got, err := DecodePayload(encoded)
			if err != nil {
				t.Fatalf("DecodePayload() error = %v", err)
			}
			if got.Kind != want.Kind || got.Key != want.Key {
				t.Errorf("DecodePayload() = %+v, want %+v", got, want)
			}
			if want.Kind == KindSet && got.Value != want.Value {
				t.Errorf("DecodePayload() value = %q, want %q", got.Value, want.Value)
			}
		})
	}
}

func TestDecodePayload_CRCMismatch(t *testing.T) {
	encoded := Set("key", "value").EncodePayload()
	encoded[0] ^= 0xFF

	_, err := DecodePayload(encoded)
	if !errors.Is(err, ErrMalformedRecord) {
		t.Errorf("DecodePayload() error = %v, want ErrMalformedRecord", err)
	}
}

func TestDecodePayload_UnknownTag(t *testing.T) {
	encoded := Set("key", "value").EncodePayload()
	body := encoded[4:]
	body[0] = 0xFE
	crc := crc32.ChecksumIEEE(body)
	binary.BigEndian.PutUint32(encoded[0:4], crc)

	_, err := DecodePayload(encoded)
	if !errors.Is(err, ErrMalformedRecord) {
		t.Errorf("DecodePayload() error = %v, want ErrMalformedRecord", err)
	}
}

func TestDecodePayload_TooShort(t *testing.T) {
	_, err := DecodePayload([]byte{1, 2, 3})
	if !errors.Is(err, ErrMalformedRecord) {
		t.Errorf("DecodePayload() error = %v, want ErrMalformedRecord", err)
	}
}

func TestReadFrom_RoundTrip(t *testing.T) {
	want := Set("k1", "v1")
	var buf bytes.Buffer
	buf.Write(want.Encode())

	got, n, err := ReadFrom(&buf)
	if err != nil {
		t.Fatalf("ReadFrom() error = %v", err)
	}
	if n != want.Size() {
		t.Errorf("ReadFrom() consumed %d bytes, want %d", n, want.Size())
	}
	if got.Kind != want.Kind || got.Key != want.Key || got.Value != want.Value {
		t.Errorf("ReadFrom() = %+v, want %+v", got, want)
	}
}

func TestReadFrom_CleanEOF(t *testing.T) {
	var buf bytes.Buffer
	_, _, err := ReadFrom(&buf)
	if !errors.Is(err, ErrEndOfLog) {
		t.Errorf("ReadFrom() on empty reader error = %v, want ErrEndOfLog", err)
	}
}

func TestReadFrom_TruncatedLengthPrefix(t *testing.T) {
	buf := bytes.NewBuffer([]byte{0, 0, 0})
	_, _, err := ReadFrom(buf)
	if !errors.Is(err, ErrMalformedRecord) {
		t.Errorf("ReadFrom() on truncated prefix error = %v, want ErrMalformedRecord", err)
	}
}

func TestReadFrom_TruncatedPayload(t *testing.T) {
	full := Set("key", "value").Encode()
	buf := bytes.NewBuffer(full[:len(full)-3])
	_, _, err := ReadFrom(buf)
	if !errors.Is(err, ErrMalformedRecord) {
		t.Errorf("ReadFrom() on truncated payload error = %v, want ErrMalformedRecord", err)
	}
}

func TestSize(t *testing.T) {
	r := Set("key", "value")
	if r.Size() != int64(len(r.Encode())) {
		t.Errorf("Size() = %d, want %d", r.Size(), len(r.Encode()))
	}
}
