package model

import "github.com/google/uuid"

// FieldRow is the long-format, DB-ready representation of one decoded field.
// One DecodedRecord explodes into one FieldRow per field.
type FieldRow struct {
	BatchID   uuid.UUID
	Shard     string
	RecordSeq int64

	FieldKey string
	Kind     string
	RawValue *string
	Label    *string
}

// FieldRowColumns returns the ordered column names for COPY into decode.decoded_fields.
func FieldRowColumns() []string {
	return []string{
		"batch_id",
		"shard",
		"record_seq",
		"field_key",
		"kind",
		"raw_value",
		"label",
	}
}

// CopyValues returns the row values in the same order as FieldRowColumns(),
// suitable for pgx CopyFromSource.
func (r *FieldRow) CopyValues() []any {
	return []any{
		r.BatchID,
		r.Shard,
		r.RecordSeq,
		r.FieldKey,
		r.Kind,
		r.RawValue,
		r.Label,
	}
}

// FieldRows explodes a decoded record into FieldRows.
func FieldRows(batchID uuid.UUID, shard string, rec DecodedRecord) []*FieldRow {
	rows := make([]*FieldRow, 0, rec.Len())
	for _, f := range rec.fields {
		row := &FieldRow{
			BatchID:   batchID,
			Shard:     shard,
			RecordSeq: rec.Seq,
			FieldKey:  f.Key,
			Kind:      f.Result.Kind.String(),
			RawValue:  f.Raw,
		}
		if f.Result.HasLabel {
			label := f.Result.Label
			row.Label = &label
		}
		rows = append(rows, row)
	}
	return rows
}
