package storage

const (
	selectEvents = `SELECT id, name, description, start_date, end_date, created_at
FROM events ORDER BY position`

	selectHeads = `SELECT id, event_id, name, category, total_amount, created_at
FROM expense_heads ORDER BY position`

	selectEntries = `SELECT id, expense_head_id, amount_paid, date, image
FROM expense_entries ORDER BY position`

	insertEvent = `INSERT INTO events (id, position, name, description, start_date, end_date, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`

	insertHead = `INSERT INTO expense_heads (id, position, event_id, name, category, total_amount, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`

	insertEntry = `INSERT INTO expense_entries (id, position, expense_head_id, amount_paid, date, image)
VALUES (?, ?, ?, ?, ?, ?)`

	deleteEvents  = `DELETE FROM events`
	deleteHeads   = `DELETE FROM expense_heads`
	deleteEntries = `DELETE FROM expense_entries`

	selectSyncMeta = `SELECT last_sync, last_error FROM sync_meta WHERE id = 1`

	upsertSyncMeta = `INSERT INTO sync_meta (id, last_sync, last_error, updated_at)
VALUES (1, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    last_sync = excluded.last_sync,
    last_error = excluded.last_error,
    updated_at = excluded.updated_at`
)
