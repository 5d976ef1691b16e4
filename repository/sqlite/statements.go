package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/nijaru/yt-digest/errors"
)

type PreparedStatements struct {
	upsertTranscript *sql.Stmt
	getTranscript    *sql.Stmt
	deleteTranscript *sql.Stmt
	insertDigest     *sql.Stmt
	listDigests      *sql.Stmt
}

func (stmts *PreparedStatements) Prepare(ctx context.Context, db *sql.DB) error {
	const op = "PreparedStatements.Prepare"

	prepare := []struct {
		dst   **sql.Stmt
		query string
		name  string
	}{
		{&stmts.upsertTranscript, upsertTranscriptQuery, "upsertTranscript"},
		{&stmts.getTranscript, getTranscriptQuery, "getTranscript"},
		{&stmts.deleteTranscript, deleteTranscriptQuery, "deleteTranscript"},
		{&stmts.insertDigest, insertDigestQuery, "insertDigest"},
		{&stmts.listDigests, listDigestsQuery, "listDigests"},
	}

	for _, p := range prepare {
		stmt, err := db.PrepareContext(ctx, p.query)
		if err != nil {
			return errors.Internal(op, err, fmt.Sprintf("failed to prepare %s statement", p.name))
		}
		*p.dst = stmt
	}

	return nil
}

func (stmts *PreparedStatements) Close() error {
	var errs []error

	statements := [...]*sql.Stmt{
		stmts.upsertTranscript,
		stmts.getTranscript,
		stmts.deleteTranscript,
		stmts.insertDigest,
		stmts.listDigests,
	}

	for _, stmt := range statements {
		if stmt != nil {
			if err := stmt.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("failed to close prepared statements: %v", errs)
	}

	return nil
}
