package journal

const Schema = `
CREATE TABLE IF NOT EXISTS trades (
	trade_id TEXT PRIMARY KEY,
	cycle_id TEXT NOT NULL,
	order_id TEXT NOT NULL,
	instrument TEXT NOT NULL,
	side TEXT NOT NULL,
	quantity INTEGER NOT NULL,
	price REAL NOT NULL,
	time DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS cycles (
	cycle_id TEXT PRIMARY KEY,
	instrument TEXT NOT NULL,
	quantity INTEGER NOT NULL,
	entry_price REAL NOT NULL,
	exit_price REAL NOT NULL,
	entry_time DATETIME NOT NULL,
	exit_time DATETIME NOT NULL,
	realized_pl REAL NOT NULL,
	exit_reason TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trades_cycle ON trades(cycle_id);
CREATE INDEX IF NOT EXISTS idx_cycles_exit_time ON cycles(exit_time);
`
