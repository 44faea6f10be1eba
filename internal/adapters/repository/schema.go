package repository

const schemaSQLite = `
CREATE TABLE IF NOT EXISTS assessments (
  seq INTEGER PRIMARY KEY AUTOINCREMENT,
  id TEXT NOT NULL UNIQUE,
  subject TEXT NOT NULL,
  version TEXT NOT NULL DEFAULT '',
  student_id TEXT NOT NULL DEFAULT '',
  global_score REAL,
  confidence_index REAL,
  payload_json TEXT NOT NULL DEFAULT '',
  ssn REAL,
  created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_assessments_subject ON assessments(subject, version);

CREATE TABLE IF NOT EXISTS progression_history (
  seq INTEGER PRIMARY KEY AUTOINCREMENT,
  id TEXT NOT NULL UNIQUE,
  student_id TEXT NOT NULL,
  ssn REAL NOT NULL,
  recorded_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_progression_student ON progression_history(student_id);

CREATE TABLE IF NOT EXISTS projection_history (
  seq INTEGER PRIMARY KEY AUTOINCREMENT,
  id TEXT NOT NULL UNIQUE,
  student_id TEXT NOT NULL,
  ssn_projected REAL NOT NULL,
  confidence INTEGER NOT NULL,
  model_version TEXT NOT NULL,
  input_json TEXT NOT NULL,
  created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_projection_student ON projection_history(student_id);
`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS assessments (
  seq BIGSERIAL PRIMARY KEY,
  id TEXT NOT NULL UNIQUE,
  subject TEXT NOT NULL,
  version TEXT NOT NULL DEFAULT '',
  student_id TEXT NOT NULL DEFAULT '',
  global_score DOUBLE PRECISION,
  confidence_index DOUBLE PRECISION,
  payload_json TEXT NOT NULL DEFAULT '',
  ssn DOUBLE PRECISION,
  created_at BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_assessments_subject ON assessments(subject, version);

CREATE TABLE IF NOT EXISTS progression_history (
  seq BIGSERIAL PRIMARY KEY,
  id TEXT NOT NULL UNIQUE,
  student_id TEXT NOT NULL,
  ssn DOUBLE PRECISION NOT NULL,
  recorded_at BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_progression_student ON progression_history(student_id);

CREATE TABLE IF NOT EXISTS projection_history (
  seq BIGSERIAL PRIMARY KEY,
  id TEXT NOT NULL UNIQUE,
  student_id TEXT NOT NULL,
  ssn_projected DOUBLE PRECISION NOT NULL,
  confidence INTEGER NOT NULL,
  model_version TEXT NOT NULL,
  input_json TEXT NOT NULL,
  created_at BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_projection_student ON projection_history(student_id);
`
