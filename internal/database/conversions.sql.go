package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const conversionColumns = `id, source_name, title, event_count, skipped_count, byte_size, client_ip, user_agent, created_at`

const insertConversion = `-- name: InsertConversion :one
INSERT INTO conversions (
    id, source_name, title, event_count, skipped_count, byte_size, client_ip, user_agent
) VALUES (
    $1, $2, $3, $4, $5, $6, $7, $8
)
RETURNING ` + conversionColumns

type InsertConversionParams struct {
	ID           pgtype.UUID
	SourceName   string
	Title        string
	EventCount   int32
	SkippedCount int32
	ByteSize     int64
	ClientIp     pgtype.Text
	UserAgent    pgtype.Text
}

func (q *Queries) InsertConversion(ctx context.Context, arg InsertConversionParams) (Conversion, error) {
	row := q.db.QueryRow(ctx, insertConversion,
		arg.ID,
		arg.SourceName,
		arg.Title,
		arg.EventCount,
		arg.SkippedCount,
		arg.ByteSize,
		arg.ClientIp,
		arg.UserAgent,
	)
	var i Conversion
	err := scanConversion(row, &i)
	return i, err
}

const getConversion = `-- name: GetConversion :one
SELECT ` + conversionColumns + `
FROM conversions
WHERE id = $1`

func (q *Queries) GetConversion(ctx context.Context, id pgtype.UUID) (Conversion, error) {
	row := q.db.QueryRow(ctx, getConversion, id)
	var i Conversion
	err := scanConversion(row, &i)
	return i, err
}

const listConversions = `-- name: ListConversions :many
SELECT ` + conversionColumns + `
FROM conversions
ORDER BY created_at DESC
LIMIT $1`

func (q *Queries) ListConversions(ctx context.Context, limit int32) ([]Conversion, error) {
	rows, err := q.db.Query(ctx, listConversions, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Conversion
	for rows.Next() {
		var i Conversion
		if err := scanConversion(rows, &i); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deleteConversionsBefore = `-- name: DeleteConversionsBefore :execrows
DELETE FROM conversions
WHERE created_at < $1`

func (q *Queries) DeleteConversionsBefore(ctx context.Context, before pgtype.Timestamptz) (int64, error) {
	result, err := q.db.Exec(ctx, deleteConversionsBefore, before)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanConversion(row scanner, i *Conversion) error {
	return row.Scan(
		&i.ID,
		&i.SourceName,
		&i.Title,
		&i.EventCount,
		&i.SkippedCount,
		&i.ByteSize,
		&i.ClientIp,
		&i.UserAgent,
		&i.CreatedAt,
	)
}
