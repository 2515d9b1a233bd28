package database

import (
	"database/sql"
	stdlog "log"

	"github.com/username/trackfolio/src/logger"
	_ "modernc.org/sqlite"
)

var DB *sql.DB

func InitDB(databasePath string) {
	db, err := sql.Open("sqlite", databasePath)
	if err != nil {
		stdlog.Fatalf("failed to open database at %s: %v", databasePath, err)
	}

	DB = db

	if logger.L != nil {
		logger.L.Info("Checking database migrations", "databasePath", databasePath)
	} else {
		stdlog.Println("Checking database migrations for:", databasePath)
	}
	migrateTransactionsTable()

	createTableStatement := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		password TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		auth_provider TEXT DEFAULT 'local',
		is_email_verified BOOLEAN DEFAULT FALSE,
		email_verification_token TEXT,
		email_verification_token_expires_at TIMESTAMP,
		password_reset_token TEXT,
		password_reset_token_expires_at TIMESTAMP,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS sessions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		token TEXT NOT NULL,
		refresh_token TEXT NOT NULL,
		user_agent TEXT,
		client_ip TEXT,
		is_blocked BOOLEAN DEFAULT FALSE,
		expires_at TIMESTAMP,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY(user_id) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS transactions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		date TEXT NOT NULL,
		source TEXT NOT NULL,
		product_name TEXT NOT NULL,
		isin TEXT,
		quantity REAL,
		price REAL,
		transaction_type TEXT,
		transaction_subtype TEXT,
		buy_sell TEXT,
		description TEXT,
		amount REAL,
		currency TEXT,
		commission REAL,
		order_id TEXT,
		exchange_rate REAL,
		amount_eur REAL,
		country_code TEXT,
		split_ratio REAL,
		hash_id TEXT,
		FOREIGN KEY(user_id) REFERENCES users(id),
		UNIQUE(user_id, hash_id)
	);

	CREATE TABLE IF NOT EXISTS snapshots (
		id TEXT PRIMARY KEY,
		user_id INTEGER NOT NULL,
		snapshot_date TEXT NOT NULL,
		total_value_eur REAL NOT NULL,
		total_cost_eur REAL NOT NULL,
		position_count INTEGER NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY(user_id) REFERENCES users(id),
		UNIQUE(user_id, snapshot_date)
	);

	CREATE TABLE IF NOT EXISTS instrument_ticker_map (
		isin TEXT PRIMARY KEY,
		ticker_symbol TEXT NOT NULL,
		exchange TEXT,
		currency TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		last_checked_at TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS watched_wallets (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		chain TEXT NOT NULL,
		address TEXT NOT NULL,
		symbol TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY(user_id) REFERENCES users(id),
		UNIQUE(user_id, chain, address)
	);
	`

	_, err = DB.Exec(createTableStatement)
	if err != nil {
		if logger.L != nil {
			logger.L.Error("failed to create tables", "error", err)
		}
		stdlog.Fatalf("failed to create tables: %v", err)
	}
	if logger.L != nil {
		logger.L.Info("Database tables ensured/created.")
	} else {
		stdlog.Println("Database tables ensured/created.")
	}
}

// migrateTransactionsTable adds columns introduced after the first release
// to existing databases. New databases get the full schema from InitDB.
func migrateTransactionsTable() {
	var tableName string
	err := DB.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='transactions'").Scan(&tableName)
	if err != nil {
		if err == sql.ErrNoRows {
			return // table will be created with the full schema
		}
		if logger.L != nil {
			logger.L.Error("Error checking for 'transactions' table", "error", err)
		} else {
			stdlog.Printf("Error checking for 'transactions' table: %v", err)
		}
		return
	}

	rows, err := DB.Query("PRAGMA table_info(transactions)")
	if err != nil {
		if logger.L != nil {
			logger.L.Error("Error querying table schema for 'transactions'", "error", err)
		} else {
			stdlog.Printf("Error querying table schema for 'transactions': %v", err)
		}
		return
	}
	defer rows.Close()

	columnExists := make(map[string]bool)
	for rows.Next() {
		var cid, pk int
		var name, dataType string
		var notnullVal int
		var dfltValue interface{}
		if err := rows.Scan(&cid, &name, &dataType, &notnullVal, &dfltValue, &pk); err != nil {
			if logger.L != nil {
				logger.L.Error("Error scanning column info for 'transactions'", "error", err)
			} else {
				stdlog.Printf("Error scanning column info for 'transactions': %v", err)
			}
			return
		}
		columnExists[name] = true
	}
	if err = rows.Err(); err != nil {
		if logger.L != nil {
			logger.L.Error("Error iterating over column info for 'transactions'", "error", err)
		} else {
			stdlog.Printf("Error iterating over column info for 'transactions': %v", err)
		}
		return
	}

	addColumn := func(name, definition string) {
		if columnExists[name] {
			return
		}
		_, err := DB.Exec("ALTER TABLE transactions ADD COLUMN " + name + " " + definition)
		if err != nil {
			if logger.L != nil {
				logger.L.Error("Error adding column to 'transactions' table", "column", name, "error", err)
			} else {
				stdlog.Printf("Error adding '%s' column to 'transactions' table: %v", name, err)
			}
			return
		}
		if logger.L != nil {
			logger.L.Info("Added column to 'transactions' table", "column", name)
		} else {
			stdlog.Printf("Added '%s' column to 'transactions' table", name)
		}
	}

	addColumn("split_ratio", "REAL")
	addColumn("country_code", "TEXT")
	addColumn("description", "TEXT")
}
