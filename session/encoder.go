package session

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
)

const recordFormatVersion = 1

const flagProfileComplete byte = 1 << 0

// ErrCorrupt is returned by Decode for a blob it cannot read.
var ErrCorrupt = errors.New("session record corrupt")

// Encode serializes r. Short string fields are length-prefixed with one byte,
// the token with two.
func Encode(r *Record) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(64 + len(r.Token))

	buf.WriteByte(recordFormatVersion)
	for _, field := range []struct {
		name  string
		value string
	}{
		{"client id", r.ClientID},
		{"user id", r.UserID},
		{"role", r.Role},
	} {
		if len(field.value) > 255 {
			return nil, errors.New(field.name + " too long")
		}
		buf.WriteByte(byte(len(field.value)))
		buf.WriteString(field.value)
	}

	var flags byte
	if r.ProfileComplete {
		flags |= flagProfileComplete
	}
	buf.WriteByte(flags)

	if len(r.Token) > 0xFFFF {
		return nil, errors.New("token too long")
	}
	_ = binary.Write(&buf, binary.BigEndian, uint16(len(r.Token)))
	buf.WriteString(r.Token)

	_ = binary.Write(&buf, binary.BigEndian, r.CreatedAt)
	_ = binary.Write(&buf, binary.BigEndian, r.ExpiresAt)

	return buf.Bytes(), nil
}

// Decode parses a blob produced by Encode.
func Decode(data []byte) (*Record, error) {
	rd := bytes.NewReader(data)

	version, err := rd.ReadByte()
	if err != nil || version != recordFormatVersion {
		return nil, ErrCorrupt
	}

	var r Record
	for _, dst := range []*string{&r.ClientID, &r.UserID, &r.Role} {
		n, err := rd.ReadByte()
		if err != nil {
			return nil, ErrCorrupt
		}
		if *dst, err = readString(rd, int(n)); err != nil {
			return nil, err
		}
	}

	flags, err := rd.ReadByte()
	if err != nil || flags&^flagProfileComplete != 0 {
		return nil, ErrCorrupt
	}
	r.ProfileComplete = flags&flagProfileComplete != 0

	var tokenLen uint16
	if err := binary.Read(rd, binary.BigEndian, &tokenLen); err != nil {
		return nil, ErrCorrupt
	}
	if r.Token, err = readString(rd, int(tokenLen)); err != nil {
		return nil, err
	}

	if err := binary.Read(rd, binary.BigEndian, &r.CreatedAt); err != nil {
		return nil, ErrCorrupt
	}
	if err := binary.Read(rd, binary.BigEndian, &r.ExpiresAt); err != nil {
		return nil, ErrCorrupt
	}
	if rd.Len() != 0 {
		return nil, ErrCorrupt
	}

	return &r, nil
}

func readString(rd *bytes.Reader, n int) (string, error) {
	if n == 0 {
		return "", nil
	}
	if n > rd.Len() {
		return "", ErrCorrupt
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(rd, buf); err != nil {
		return "", ErrCorrupt
	}
	return string(buf), nil
}
