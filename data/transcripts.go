package data

// Transcript is one recognized-speech row, keyed by the stream it was
// heard on and when.
type Transcript struct {
	ID        int64  `json:"id"`
	Stream    string `json:"stream"`
	Text      string `json:"text"`
	Sentiment string `json:"sentiment,omitempty"`
	CreatedAt int64  `json:"createdAt"` // epoch ms
}

// SaveTranscript stores one recognized segment.
func (s *Store) SaveTranscript(t *Transcript) error {
	res, err := s.db.Exec(
		`INSERT INTO transcripts (stream, text, sentiment, created_at) VALUES (?, ?, ?, ?)`,
		t.Stream, t.Text, t.Sentiment, t.CreatedAt,
	)
	if err != nil {
		return err
	}
	t.ID, _ = res.LastInsertId()
	return nil
}

// Transcripts returns up to limit rows for a stream newer than since,
// oldest first.
func (s *Store) Transcripts(stream string, since int64, limit int) ([]*Transcript, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.Query(
		`SELECT id, stream, text, sentiment, created_at FROM transcripts
		 WHERE stream = ? AND created_at > ?
		 ORDER BY created_at ASC LIMIT ?`,
		stream, since, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transcripts []*Transcript
	for rows.Next() {
		var t Transcript
		if err := rows.Scan(&t.ID, &t.Stream, &t.Text, &t.Sentiment, &t.CreatedAt); err != nil {
			return nil, err
		}
		transcripts = append(transcripts, &t)
	}
	return transcripts, rows.Err()
}
