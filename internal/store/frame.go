package store

import (
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ayusman/depthview/internal/depth"
	"github.com/ayusman/depthview/internal/sensor"
)

// FrameRepository stores the frames of recorded sessions.
type FrameRepository struct {
	db *sql.DB
}

// Frames returns the frame repository for this store.
func (s *Store) Frames() *FrameRepository {
	return &FrameRepository{db: s.db}
}

// Append adds a frame to the end of a session and updates the session's
// frame count and resolution in a single transaction. Row padding is not stored.
func (r *FrameRepository) Append(sessionID string, f *sensor.Frame) error {
	if err := f.Validate(); err != nil {
		return err
	}

	users, err := json.Marshal(f.Users)
	if err != nil {
		return fmt.Errorf("encode users: %w", err)
	}

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var count int
	err = tx.QueryRow(`SELECT frames FROM sessions WHERE id = ?`, sessionID).Scan(&count)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}

	_, err = tx.Exec(
		`INSERT INTO session_frames (session_id, sequence, timestamp_ms, width, height, depth, mask, users)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sessionID, count, f.Timestamp, f.Depth.Width, f.Depth.Height,
		encodeDepth(f.Depth), encodeLabels(f.Mask.Labels[:f.Mask.Width*f.Mask.Height]), string(users),
	)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`UPDATE sessions SET frames = ?, width = ?, height = ?, updated_at = ? WHERE id = ?`,
		count+1, f.Depth.Width, f.Depth.Height, time.Now(), sessionID)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// LoadAt retrieves the frame with the given sequence number of a session.
// Frames are numbered from 0 in recording order.
func (r *FrameRepository) LoadAt(sessionID string, seq int) (*sensor.Frame, error) {
	var (
		f                   sensor.Frame
		width, height       int
		depthBlob, maskBlob []byte
		usersJSON           string
	)

	err := r.db.QueryRow(
		`SELECT sequence, timestamp_ms, width, height, depth, mask, users
		 FROM session_frames
		 WHERE session_id = ? AND sequence = ?`,
		sessionID, seq,
	).Scan(&f.Index, &f.Timestamp, &width, &height, &depthBlob, &maskBlob, &usersJSON)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	samples := width * height
	if len(depthBlob) != samples*depth.BytesPerSample || len(maskBlob) != samples*2 {
		return nil, fmt.Errorf("frame %d of session %s: %w", f.Index, sessionID, depth.ErrInvalidFrame)
	}

	f.Depth = depth.NewFrame(width, height)
	decodeSamples(depthBlob, f.Depth.Data)
	f.Mask = depth.NewUserMask(width, height)
	decodeSamples(maskBlob, f.Mask.Labels)

	if err := json.Unmarshal([]byte(usersJSON), &f.Users); err != nil {
		return nil, fmt.Errorf("decode users of frame %d: %w", f.Index, err)
	}

	return &f, nil
}

// Count returns the number of frames stored for a session.
func (r *FrameRepository) Count(sessionID string) (int, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM session_frames WHERE session_id = ?`, sessionID).Scan(&n)
	return n, err
}

// encodeDepth packs a frame's samples row by row, dropping row padding.
func encodeDepth(f *depth.Frame) []byte {
	buf := make([]byte, 0, f.Width*f.Height*depth.BytesPerSample)
	rowSamples := f.RowSamples()
	for y := 0; y < f.Height; y++ {
		for _, v := range f.Data[y*rowSamples : y*rowSamples+f.Width] {
			buf = binary.LittleEndian.AppendUint16(buf, v)
		}
	}
	return buf
}

func encodeLabels(labels []uint16) []byte {
	buf := make([]byte, 0, len(labels)*2)
	for _, v := range labels {
		buf = binary.LittleEndian.AppendUint16(buf, v)
	}
	return buf
}

func decodeSamples(b []byte, dst []uint16) {
	for i := range dst {
		dst[i] = binary.LittleEndian.Uint16(b[2*i:])
	}
}
