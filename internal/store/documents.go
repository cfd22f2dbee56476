package store

import (
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"io"
	"time"
)

// Document is an archived copy of the exported JSON document.
type Document struct {
	ID                int64
	SnapshotID        sql.NullInt64
	StoredAt          time.Time
	PayloadCompressed []byte
	PayloadHash       string
	SizeBytes         int64
}

// DocumentHash is the SHA-256 hex digest documents are deduplicated by.
func DocumentHash(payload []byte) string {
	hash := sha256.Sum256(payload)
	return hex.EncodeToString(hash[:])
}

// StoreDocument gzips and stores payload. It returns 0 if an identical
// document is already archived.
func (s *Store) StoreDocument(snapshotID int64, payload []byte) (int64, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(payload); err != nil {
		return 0, fmt.Errorf("compress document: %w", err)
	}
	if err := gz.Close(); err != nil {
		return 0, fmt.Errorf("close gzip: %w", err)
	}

	result, err := s.db.Exec(`
		INSERT INTO documents (snapshot_id, stored_at, payload_compressed, payload_hash, size_bytes)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(payload_hash) DO NOTHING
	`, snapshotID, time.Now().UTC(), buf.Bytes(), DocumentHash(payload), len(payload))
	if err != nil {
		return 0, fmt.Errorf("insert document: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, nil
	}
	return result.LastInsertId()
}

// ArchiveDocument stores payload unless an identical document is already
// archived, then reads the archived copy back to check it. It returns the
// archived document's id and whether this call stored it.
func (s *Store) ArchiveDocument(snapshotID int64, payload []byte) (int64, bool, error) {
	id, err := s.StoreDocument(snapshotID, payload)
	if err != nil {
		return 0, false, err
	}
	stored := id != 0
	if !stored {
		existing, err := s.GetDocumentByHash(DocumentHash(payload))
		if err != nil {
			return 0, false, err
		}
		if existing == nil {
			return 0, false, fmt.Errorf("document %s not archived", DocumentHash(payload))
		}
		id = existing.ID
	}

	archived, err := s.GetDocument(id)
	if err != nil {
		return 0, false, fmt.Errorf("read document %d: %w", id, err)
	}
	if !bytes.Equal(archived, payload) {
		return 0, false, fmt.Errorf("document %d does not match export", id)
	}
	return id, stored, nil
}

// GetDocument returns the decompressed document stored under id.
func (s *Store) GetDocument(id int64) ([]byte, error) {
	var compressed []byte
	err := s.db.QueryRow(`SELECT payload_compressed FROM documents WHERE id = ?`, id).Scan(&compressed)
	if err != nil {
		return nil, err
	}

	gz, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("create gzip reader: %w", err)
	}
	defer gz.Close()

	return io.ReadAll(gz)
}

// GetDocumentByHash returns nil if no document has the given SHA-256 hex digest.
func (s *Store) GetDocumentByHash(hash string) (*Document, error) {
	var d Document
	err := s.db.QueryRow(`
		SELECT id, snapshot_id, stored_at, payload_compressed, payload_hash, size_bytes
		FROM documents WHERE payload_hash = ?
	`, hash).Scan(&d.ID, &d.SnapshotID, &d.StoredAt, &d.PayloadCompressed, &d.PayloadHash, &d.SizeBytes)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}
