package sqlite

const (
	upsertTranscriptQuery = `
        INSERT INTO transcripts (
            video_id, language, text, source, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?)
        ON CONFLICT(video_id) DO UPDATE SET
            language = excluded.language,
            text = excluded.text,
            source = excluded.source,
            updated_at = excluded.updated_at
    `

	getTranscriptQuery = `
        SELECT video_id, language, text, source, created_at, updated_at
        FROM transcripts WHERE video_id = ?
    `

	deleteTranscriptQuery = `
        DELETE FROM transcripts WHERE video_id = ?
    `

	insertDigestQuery = `
        INSERT INTO digests (
            id, video_id, user_id, mode, model, content, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?)
    `

	listDigestsQuery = `
        SELECT id, video_id, user_id, mode, model, content, created_at
        FROM digests WHERE video_id = ?
        ORDER BY created_at DESC
        LIMIT ?
    `
)
