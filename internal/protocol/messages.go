// ABOUTME: ASR worker protocol message definitions
// ABOUTME: JSON control messages, the binary chunk frame and renderer hub messages
package protocol

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Version is the worker protocol version
const Version = 1

// Path is the websocket endpoint served by ASR workers
const Path = "/asr"

// TreePath is the websocket endpoint served by the renderer hub
const TreePath = "/tree"

// Message types
const (
	TypeHello    = "client/hello"
	TypeLoad     = "engine/load"
	TypeProgress = "engine/progress"
	TypeReady    = "engine/ready"
	TypeError    = "engine/error"
	TypeResult   = "chunk/result"
	TypeFailed   = "chunk/error"

	// Renderer hub to diagram clients
	TypeTreeShow   = "tree/show"
	TypeTreeResize = "tree/resize"
)

// ChunkFrameType is the first byte of a binary chunk frame
const ChunkFrameType = 1

// Message is the top-level wrapper for all JSON protocol messages
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewMessage wraps payload in a typed message
func NewMessage(msgType string, payload any) (Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	return Message{Type: msgType, Payload: data}, nil
}

// Decode unmarshals the payload into v
func (m Message) Decode(v any) error {
	if err := json.Unmarshal(m.Payload, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", m.Type, err)
	}
	return nil
}

// Hello identifies the client to the worker
type Hello struct {
	ClientID        string `json:"client_id"`
	Product         string `json:"product"`
	SoftwareVersion string `json:"software_version"`
	Version         int    `json:"version"`
}

// Load asks the worker to load a model
type Load struct {
	Model      string `json:"model"`
	Codec      string `json:"codec"`
	SampleRate int    `json:"sample_rate"`
}

// Progress reports a fractional model load
type Progress struct {
	Progress float64 `json:"progress"`
}

// Ready reports a loaded model
type Ready struct {
	Model string `json:"model"`
}

// Error reports a failed load or protocol error
type Error struct {
	Error string `json:"error"`
}

// Result carries the text recognized for one chunk
type Result struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Failed reports a rejected chunk
type Failed struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

// Chunk is one recognition request. On the wire it is a binary frame:
//
//	[1 byte type=1][16 bytes id][4 bytes BE options length][options JSON][payload]
type Chunk struct {
	ID      uuid.UUID
	Options json.RawMessage
	Payload []byte
}

const chunkHeaderLen = 1 + 16 + 4

// MarshalBinary encodes the chunk frame
func (c Chunk) MarshalBinary() ([]byte, error) {
	out := make([]byte, chunkHeaderLen, chunkHeaderLen+len(c.Options)+len(c.Payload))
	out[0] = ChunkFrameType
	copy(out[1:17], c.ID[:])
	binary.BigEndian.PutUint32(out[17:21], uint32(len(c.Options)))
	out = append(out, c.Options...)
	out = append(out, c.Payload...)
	return out, nil
}

// UnmarshalBinary decodes a chunk frame
func (c *Chunk) UnmarshalBinary(data []byte) error {
	if len(data) < chunkHeaderLen {
		return fmt.Errorf("chunk frame too short: %d bytes", len(data))
	}
	if data[0] != ChunkFrameType {
		return fmt.Errorf("unknown binary message type: %d", data[0])
	}

	id, err := uuid.FromBytes(data[1:17])
	if err != nil {
		return fmt.Errorf("chunk id: %w", err)
	}
	optLen := int(binary.BigEndian.Uint32(data[17:21]))
	if optLen > len(data)-chunkHeaderLen {
		return fmt.Errorf("chunk options length %d exceeds frame", optLen)
	}

	body := data[chunkHeaderLen:]
	c.ID = id
	c.Options = append(json.RawMessage(nil), body[:optLen]...)
	c.Payload = append([]byte(nil), body[optLen:]...)
	return nil
}
