package store

const schema = `
CREATE TABLE IF NOT EXISTS threads (
	id TEXT PRIMARY KEY,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS turns (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	thread_id TEXT NOT NULL,
	seq INTEGER NOT NULL,
	role TEXT NOT NULL,
	kind TEXT NOT NULL, -- text, image, tool_result
	content TEXT NOT NULL DEFAULT '',
	asset_id TEXT,
	tool_result TEXT, -- JSON
	created_at DATETIME NOT NULL,
	FOREIGN KEY(thread_id) REFERENCES threads(id),
	UNIQUE(thread_id, seq)
);
CREATE INDEX IF NOT EXISTS idx_turns_thread_seq ON turns(thread_id, seq);
`
