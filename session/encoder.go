package session

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
)

const sessionFormatVersionCurrent = 1

// Encode serialises s into the current binary format. The session ID is
// the Redis key and is not part of the blob.
func Encode(s *Session) ([]byte, error) {
	if s == nil {
		return nil, errors.New("nil session")
	}
	if s.SubjectID == "" {
		return nil, errors.New("subjectID required")
	}
	if len(s.SubjectID) > 255 {
		return nil, errors.New("subjectID too long")
	}

	var buf bytes.Buffer
	buf.Grow(2 + len(s.SubjectID) + 16)

	buf.WriteByte(sessionFormatVersionCurrent)
	buf.WriteByte(byte(len(s.SubjectID)))
	buf.WriteString(s.SubjectID)

	if err := binary.Write(&buf, binary.BigEndian, s.CreatedAt); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, s.ExpiresAt); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Decode parses a blob produced by [Encode].
func Decode(data []byte) (*Session, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != sessionFormatVersionCurrent {
		return nil, errors.New("invalid session version")
	}

	subjectLen, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if subjectLen == 0 {
		return nil, errors.New("empty subjectID")
	}
	subject := make([]byte, subjectLen)
	if _, err := io.ReadFull(reader, subject); err != nil {
		return nil, err
	}

	s := &Session{SubjectID: string(subject)}
	if err := binary.Read(reader, binary.BigEndian, &s.CreatedAt); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &s.ExpiresAt); err != nil {
		return nil, err
	}
	if reader.Len() != 0 {
		return nil, errors.New("trailing session bytes")
	}

	return s, nil
}
