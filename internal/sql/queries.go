// Package sql embeds the decode schema migrations and queries.
package sql

import (
	"embed"
)

//go:embed migrations/*.sql
var Migrations embed.FS

//go:embed queries/register_batch.sql
var RegisterBatch string

//go:embed queries/finish_batch.sql
var FinishBatch string

//go:embed queries/delete_batch_fields.sql
var DeleteBatchFields string
