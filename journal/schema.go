package journal

const Schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id TEXT PRIMARY KEY,
	created DATETIME NOT NULL,
	account TEXT NOT NULL,
	leverage REAL NOT NULL,
	maintenance REAL NOT NULL,
	spread REAL NOT NULL,
	mode TEXT NOT NULL,
	policy TEXT NOT NULL,
	capital REAL NOT NULL,
	start_date DATETIME NOT NULL,
	end_date DATETIME NOT NULL,
	dataset TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS run_metrics (
	run_id TEXT NOT NULL REFERENCES runs(run_id),
	name TEXT NOT NULL,
	value REAL NOT NULL,
	PRIMARY KEY (run_id, name)
);

CREATE TABLE IF NOT EXISTS days (
	run_id TEXT NOT NULL,
	date DATETIME NOT NULL,
	price REAL NOT NULL,
	status TEXT NOT NULL,
	round INTEGER NOT NULL,
	shares REAL NOT NULL,
	portfolio_value REAL NOT NULL,
	margin_loan REAL NOT NULL,
	equity REAL NOT NULL,
	maintenance_required REAL NOT NULL,
	is_margin_call INTEGER NOT NULL,
	margin_call_price REAL NOT NULL,
	cushion REAL NOT NULL,
	cushion_pct REAL NOT NULL,
	interest REAL NOT NULL,
	dividend REAL NOT NULL,
	liquidation_value REAL NOT NULL,
	remaining_wait_days INTEGER NOT NULL,
	reference_rate REAL NOT NULL,
	borrow_rate REAL NOT NULL,
	PRIMARY KEY (run_id, date)
);

CREATE TABLE IF NOT EXISTS rounds (
	run_id TEXT NOT NULL,
	number INTEGER NOT NULL,
	start_date DATETIME NOT NULL,
	end_date DATETIME NOT NULL,
	days_held INTEGER NOT NULL,
	start_price REAL NOT NULL,
	end_price REAL NOT NULL,
	capital_deployed REAL NOT NULL,
	final_value REAL NOT NULL,
	outcome TEXT NOT NULL,
	interest_paid REAL NOT NULL,
	dividends_received REAL NOT NULL,
	rebalances INTEGER NOT NULL,
	PRIMARY KEY (run_id, number)
);

CREATE TABLE IF NOT EXISTS rebalances (
	run_id TEXT NOT NULL,
	date DATETIME NOT NULL,
	round INTEGER NOT NULL,
	price REAL NOT NULL,
	growth_trigger_pct REAL NOT NULL,
	shares_added REAL NOT NULL,
	borrowed REAL NOT NULL,
	transaction_cost REAL NOT NULL,
	leverage_before REAL NOT NULL,
	leverage_after REAL NOT NULL,
	portfolio_after REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_rebalances_run ON rebalances(run_id, date);
`
