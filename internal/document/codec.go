// Package document encodes the whole persisted state and fingerprints it so
// stores can detect lost updates.
package document

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/cespare/xxhash/v2"

	"quiz-delivery-service/internal/domain"
)

// NoRevision marks a store that holds no document yet.
const NoRevision uint64 = 0

// Encode serializes doc in the indented layout the data file has always used.
func Encode(doc domain.Document) ([]byte, error) {
	if doc.Quizzes == nil || doc.Questions == nil || doc.Attempts == nil {
		filled := domain.EmptyDocument()
		if doc.Quizzes != nil {
			filled.Quizzes = doc.Quizzes
		}
		if doc.Questions != nil {
			filled.Questions = doc.Questions
		}
		if doc.Attempts != nil {
			filled.Attempts = doc.Attempts
		}
		doc = filled
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return data, nil
}

// Decode parses data; empty input yields an empty document.
func Decode(data []byte) (domain.Document, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return domain.EmptyDocument(), nil
	}
	var doc domain.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return domain.Document{}, fmt.Errorf("decode document: %w", err)
	}
	return doc, nil
}

// Revision fingerprints encoded bytes. It never returns NoRevision.
func Revision(data []byte) uint64 {
	sum := xxhash.Sum64(data)
	if sum == NoRevision {
		return 1
	}
	return sum
}

// EncodeWithRevision encodes doc and returns its revision alongside.
func EncodeWithRevision(doc domain.Document) ([]byte, uint64, error) {
	data, err := Encode(doc)
	if err != nil {
		return nil, NoRevision, err
	}
	return data, Revision(data), nil
}

// Clone deep-copies doc through the codec so callers never share slices.
func Clone(doc domain.Document) (domain.Document, error) {
	data, err := Encode(doc)
	if err != nil {
		return domain.Document{}, err
	}
	return Decode(data)
}
