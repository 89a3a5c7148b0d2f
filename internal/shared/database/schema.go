package database

// dialect holds the driver-specific SQL for the request/response tables
type dialect struct {
	driver string
	schema []string

	insertRequest       string
	insertRequestWithID string
	insertResponse      string
	selectRequest       string
	selectResponse      string
}

var postgresDialect = dialect{
	driver: "postgres",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS request (
			id TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
			path TEXT NOT NULL,
			body JSONB NOT NULL DEFAULT '{}'::jsonb,
			auth_hash TEXT NOT NULL,
			user_id TEXT,
			prompt_id TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_request_auth_hash ON request(auth_hash, created_at)`,
		`CREATE TABLE IF NOT EXISTS response (
			id TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
			request TEXT NOT NULL UNIQUE REFERENCES request(id) ON DELETE CASCADE,
			body JSONB NOT NULL DEFAULT '{}'::jsonb,
			status INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	},
	insertRequest: `
		INSERT INTO request (path, body, auth_hash, user_id, prompt_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
	insertRequestWithID: `
		INSERT INTO request (id, path, body, auth_hash, user_id, prompt_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
	insertResponse: `
		INSERT INTO response (request, body, status, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
	selectRequest: `
		SELECT id, path, body, auth_hash, user_id, prompt_id, created_at
		FROM request WHERE id = $1`,
	selectResponse: `
		SELECT id, request, body, status, created_at
		FROM response WHERE request = $1`,
}

var sqliteDialect = dialect{
	driver: "sqlite",
	schema: []string{
		`PRAGMA journal_mode=WAL`,
		`PRAGMA foreign_keys=ON`,
		`CREATE TABLE IF NOT EXISTS request (
			id TEXT PRIMARY KEY DEFAULT (lower(hex(randomblob(16)))),
			path TEXT NOT NULL,
			body TEXT NOT NULL DEFAULT '{}',
			auth_hash TEXT NOT NULL,
			user_id TEXT,
			prompt_id TEXT,
			created_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_request_auth_hash ON request(auth_hash, created_at)`,
		`CREATE TABLE IF NOT EXISTS response (
			id TEXT PRIMARY KEY DEFAULT (lower(hex(randomblob(16)))),
			request TEXT NOT NULL UNIQUE REFERENCES request(id) ON DELETE CASCADE,
			body TEXT NOT NULL DEFAULT '{}',
			status INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL
		)`,
	},
	insertRequest: `
		INSERT INTO request (path, body, auth_hash, user_id, prompt_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id`,
	insertRequestWithID: `
		INSERT INTO request (id, path, body, auth_hash, user_id, prompt_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id`,
	insertResponse: `
		INSERT INTO response (request, body, status, created_at)
		VALUES (?, ?, ?, ?)
		RETURNING id`,
	selectRequest: `
		SELECT id, path, body, auth_hash, user_id, prompt_id, created_at
		FROM request WHERE id = ?`,
	selectResponse: `
		SELECT id, request, body, status, created_at
		FROM response WHERE request = ?`,
}
