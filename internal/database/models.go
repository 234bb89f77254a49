package database

import (
	"github.com/jackc/pgx/v5/pgtype"
)

type Conversion struct {
	ID           pgtype.UUID
	SourceName   string
	Title        string
	EventCount   int32
	SkippedCount int32
	ByteSize     int64
	ClientIp     pgtype.Text
	UserAgent    pgtype.Text
	CreatedAt    pgtype.Timestamptz
}
