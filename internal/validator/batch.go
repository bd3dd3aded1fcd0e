package validator

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Batch is one aggregate signature over (public key, message) pairs.
type Batch struct {
	ID         string
	PublicKeys [][]byte
	Messages   [][]byte
	Signature  []byte
	ForceCache bool
}

type batchJSON struct {
	ID         string   `json:"id,omitempty"`
	PublicKeys []string `json:"public_keys"`
	Messages   []string `json:"messages"`
	Signature  string   `json:"signature"`
	ForceCache bool     `json:"force_cache,omitempty"`
}

// MarshalJSON encodes every byte field as lowercase hex.
func (b Batch) MarshalJSON() ([]byte, error) {
	j := batchJSON{
		ID:         b.ID,
		PublicKeys: make([]string, len(b.PublicKeys)),
		Messages:   make([]string, len(b.Messages)),
		Signature:  hex.EncodeToString(b.Signature),
		ForceCache: b.ForceCache,
	}
	for i, pk := range b.PublicKeys {
		j.PublicKeys[i] = hex.EncodeToString(pk)
	}
	for i, m := range b.Messages {
		j.Messages[i] = hex.EncodeToString(m)
	}
	return json.Marshal(j)
}

func (b *Batch) UnmarshalJSON(data []byte) error {
	var j batchJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	pks, err := decodeAll("public_keys", j.PublicKeys)
	if err != nil {
		return err
	}
	msgs, err := decodeAll("messages", j.Messages)
	if err != nil {
		return err
	}
	sig, err := hex.DecodeString(j.Signature)
	if err != nil {
		return fmt.Errorf("signature: %w", err)
	}
	*b = Batch{ID: j.ID, PublicKeys: pks, Messages: msgs, Signature: sig, ForceCache: j.ForceCache}
	return nil
}

func decodeAll(field string, in []string) ([][]byte, error) {
	out := make([][]byte, len(in))
	for i, s := range in {
		b, err := hex.DecodeString(s)
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", field, i, err)
		}
		out[i] = b
	}
	return out, nil
}

// DecodeBatch parses a single JSON batch.
func DecodeBatch(data []byte) (Batch, error) {
	var b Batch
	if err := json.Unmarshal(data, &b); err != nil {
		return Batch{}, err
	}
	return b, nil
}

// ReadBatches decodes a stream of JSON batches (one per line, or simply
// concatenated) until EOF.
func ReadBatches(r io.Reader) ([]Batch, error) {
	dec := json.NewDecoder(r)
	var out []Batch
	for {
		var b Batch
		err := dec.Decode(&b)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("batch %d: %w", len(out), err)
		}
		out = append(out, b)
	}
}

// Result is the outcome of one batch.
type Result struct {
	ID        string `json:"id"`
	OK        bool   `json:"ok"`
	Err       string `json:"err,omitempty"`
	LatencyMs int64  `json:"latency_ms"`
	TraceID   string `json:"trace_id"`
}
