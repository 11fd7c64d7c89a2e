package persistence

// InsertionSuccess describes a successful INSERT. The pipeline produces
// exactly one per successful insert.
type InsertionSuccess struct {
	// RowID is the engine-generated row identifier. It is only meaningful
	// when HasRowID is true: engines without rowids (PostgreSQL) and
	// statements that inserted nothing (IGNORE) leave it unset.
	RowID    int64
	HasRowID bool

	// RowsAffected is what the engine reported for a plain INSERT, or the
	// number of rows the RETURNING clause produced.
	RowsAffected int64

	// Container holds the values that were inserted.
	Container *Container
}

// PersistenceSuccess is what save callbacks receive. It does not tell an
// insert from an update.
type PersistenceSuccess struct {
	RowID     int64
	HasRowID  bool
	Container *Container
}

// NewPersistenceSuccess wraps an insertion outcome.
func NewPersistenceSuccess(s InsertionSuccess) PersistenceSuccess {
	return PersistenceSuccess{
		RowID:     s.RowID,
		HasRowID:  s.HasRowID,
		Container: s.Container,
	}
}
