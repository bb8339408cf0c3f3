package p2p

import (
	"bufio"
	"bytes"
	"testing"
)

func TestWriteReadFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	payload := []byte("hello world")
	if err := WriteFrame(&buf, TagPing, payload); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	r := bufio.NewReader(&buf)
	tag, got, err := ReadFrame(r)
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if tag != TagPing {
		t.Fatalf("tag = %d, want TagPing", tag)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("payload = %q, want %q", got, payload)
	}
}

func TestReadFrameRejectsBadMagic(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{'X', 'X', 'X', 'X', TagPing, 0, 0, 0, 0})
	r := bufio.NewReader(&buf)
	_, _, err := ReadFrame(r)
	if err != ErrBadMagic {
		t.Fatalf("err = %v, want ErrBadMagic", err)
	}
}

func TestReadFrameRejectsOversizedLength(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(frameMagic[:])
	buf.WriteByte(TagPing)
	buf.Write([]byte{0xFF, 0xFF, 0xFF, 0xFF})
	r := bufio.NewReader(&buf)
	_, _, err := ReadFrame(r)
	if err != ErrFrameTooLarge {
		t.Fatalf("err = %v, want ErrFrameTooLarge", err)
	}
}

func TestReadFrameRejectsCorruptChecksum(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteFrame(&buf, TagPing, []byte("payload")); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	raw := buf.Bytes()
	raw[len(raw)-1] ^= 0xFF
	r := bufio.NewReader(bytes.NewReader(raw))
	_, _, err := ReadFrame(r)
	if err != ErrBadChecksum {
		t.Fatalf("err = %v, want ErrBadChecksum", err)
	}
}

func TestReadFrameHandlesMultipleFramesInOneStream(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteFrame(&buf, TagPing, []byte("one")); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	if err := WriteFrame(&buf, TagPong, []byte("two")); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	r := bufio.NewReader(&buf)

	tag1, p1, err := ReadFrame(r)
	if err != nil {
		t.Fatalf("ReadFrame 1: %v", err)
	}
	if tag1 != TagPing || string(p1) != "one" {
		t.Fatalf("first frame mismatch: tag=%d payload=%q", tag1, p1)
	}

	tag2, p2, err := ReadFrame(r)
	if err != nil {
		t.Fatalf("ReadFrame 2: %v", err)
	}
	if tag2 != TagPong || string(p2) != "two" {
		t.Fatalf("second frame mismatch: tag=%d payload=%q", tag2, p2)
	}
}

func TestWriteFrameRejectsOversizedPayload(t *testing.T) {
	var buf bytes.Buffer
	err := WriteFrame(&buf, TagBlock, make([]byte, MaxFrameSize+1))
	if err != ErrFrameTooLarge {
		t.Fatalf("err = %v, want ErrFrameTooLarge", err)
	}
}
