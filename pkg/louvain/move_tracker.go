package louvain

import (
	"encoding/json"
	"io"
	"os"
	"sync"
	"time"
)

// MoveEvent is one committed node move, written as a JSON line.
type MoveEvent struct {
	MoveNumber int     `json:"move"`
	Algorithm  string  `json:"algorithm"`
	Level      int     `json:"level"`
	Node       int     `json:"node"`
	FromComm   int     `json:"from_comm"`
	ToComm     int     `json:"to_comm"`
	Gain       float64 `json:"gain"`
	Modularity float64 `json:"modularity"`
	Timestamp  int64   `json:"timestamp"`
}

// MoveTracker streams MoveEvents to a writer. A nil tracker ignores calls.
type MoveTracker struct {
	mu        sync.Mutex
	closer    io.Closer
	encoder   *json.Encoder
	algorithm string
	err       error
}

// NewMoveTracker creates filename and tracks moves into it.
func NewMoveTracker(filename, algorithm string) (*MoveTracker, error) {
	file, err := os.Create(filename)
	if err != nil {
		return nil, err
	}
	mt := NewMoveTrackerWriter(file, algorithm)
	mt.closer = file
	return mt, nil
}

// NewMoveTrackerWriter tracks moves into w. Close does not close w.
func NewMoveTrackerWriter(w io.Writer, algorithm string) *MoveTracker {
	return &MoveTracker{
		encoder:   json.NewEncoder(w),
		algorithm: algorithm,
	}
}

func (mt *MoveTracker) LogMove(moveNum, level, node, fromComm, toComm int, gain, modularity float64) {
	if mt == nil {
		return
	}
	mt.mu.Lock()
	defer mt.mu.Unlock()
	if mt.err != nil {
		return
	}

	event := MoveEvent{
		MoveNumber: moveNum,
		Algorithm:  mt.algorithm,
		Level:      level,
		Node:       node,
		FromComm:   fromComm,
		ToComm:     toComm,
		Gain:       gain,
		Modularity: modularity,
		Timestamp:  time.Now().Unix(),
	}
	// the first write error disables the tracker; Close reports it
	mt.err = mt.encoder.Encode(event)
}

// Close releases the file, if any, and returns the first write error.
func (mt *MoveTracker) Close() error {
	if mt == nil {
		return nil
	}
	mt.mu.Lock()
	defer mt.mu.Unlock()
	if mt.closer != nil {
		if err := mt.closer.Close(); err != nil && mt.err == nil {
			mt.err = err
		}
		mt.closer = nil
	}
	return mt.err
}
