package main

import (
	"encoding/json"
	"io"
	"sync"
)

// lineWriter emits one JSON value per line. Watch-mode workers finish
// concurrently, so writes are serialized to keep every line whole.
type lineWriter struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func newLineWriter(w io.Writer) *lineWriter {
	return &lineWriter{enc: json.NewEncoder(w)}
}

func (l *lineWriter) Write(v any) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.enc.Encode(v)
}
