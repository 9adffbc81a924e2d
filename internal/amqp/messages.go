package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// Message types carried on the backup queue.
const (
	TypeRecordChange  = "record_change"
	TypeBackupRequest = "backup_request"
)

// Envelope wraps every queue message with its type so one queue can carry
// both kinds of work.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// RecordChangeMessage signals that a single record needs to be captured by
// the backup worker. It carries only the id and kind; the worker fetches
// the full record from storage.
type RecordChangeMessage struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Op        string    `json:"op"` // create, update, archive, delete
	Timestamp time.Time `json:"timestamp"`
}

// BackupRequestMessage asks the worker for a full snapshot of all kinds.
type BackupRequestMessage struct {
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewRecordChangeMessage(id, kind, op string) *RecordChangeMessage {
	return &RecordChangeMessage{ID: id, Kind: kind, Op: op, Timestamp: time.Now()}
}

func NewBackupRequestMessage(requestID string) *BackupRequestMessage {
	return &BackupRequestMessage{RequestID: requestID, Timestamp: time.Now()}
}

func encodeEnvelope(msgType string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	return json.Marshal(Envelope{Type: msgType, Payload: body})
}

func decodeEnvelope(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("unmarshal envelope: %w", err)
	}
	if env.Type == "" {
		return Envelope{}, fmt.Errorf("envelope missing type")
	}
	return env, nil
}
