package journal

// Prices and money columns are TEXT: decimals round-trip exactly, which
// replay verification depends on.
const Schema = `
CREATE TABLE IF NOT EXISTS fills (
	fill_id TEXT PRIMARY KEY,
	tag TEXT NOT NULL UNIQUE,
	symbol TEXT NOT NULL,
	side TEXT NOT NULL,
	date DATETIME NOT NULL,
	price TEXT NOT NULL,
	quantity INTEGER NOT NULL,
	gross TEXT NOT NULL,
	commission TEXT NOT NULL,
	stamp_tax TEXT NOT NULL,
	reason TEXT NOT NULL,
	strategy_id TEXT NOT NULL,
	layer INTEGER NOT NULL,
	pnl TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_fills_date ON fills(date);
CREATE INDEX IF NOT EXISTS idx_fills_symbol ON fills(symbol);

CREATE TABLE IF NOT EXISTS equity (
	date DATETIME PRIMARY KEY,
	equity TEXT NOT NULL,
	cash TEXT NOT NULL
);
`
