package sqlite

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    dataset_ref TEXT,
    started_at TIMESTAMP NOT NULL,
    finished_at TIMESTAMP NOT NULL,
    success_count INTEGER NOT NULL,
    failure_count INTEGER NOT NULL,
    report TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS run_jobs (
    run_id TEXT NOT NULL,
    model_name TEXT NOT NULL,
    state TEXT NOT NULL,
    success BOOLEAN NOT NULL,
    score REAL,
    version_id TEXT,
    rolled_back BOOLEAN NOT NULL,
    error TEXT,
    PRIMARY KEY (run_id, model_name),
    FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
CREATE INDEX IF NOT EXISTS idx_run_jobs_model ON run_jobs(model_name);
`
