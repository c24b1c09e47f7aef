package runstore

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    image TEXT NOT NULL,
    prompt TEXT,
    action_list TEXT NOT NULL,
    action_tag TEXT NOT NULL,
    tier TEXT NOT NULL,
    precision TEXT NOT NULL,
    seed INTEGER NOT NULL,
    infer_steps INTEGER NOT NULL,
    save_path TEXT NOT NULL,
    video_path TEXT,
    overlay_path TEXT,
    status TEXT NOT NULL,
    started_at TIMESTAMP,
    finished_at TIMESTAMP,
    wait_seconds INTEGER DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_image ON runs(image);
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
`
