package sensorstore

// schemaSensorReadings is compatible with both SQLite and PostgreSQL: one
// row per sensor name, overwritten on every SetMany, mirroring the
// teacher's repository schema shape (one CREATE TABLE IF NOT EXISTS per
// concern, applied on connect).
const schemaSensorReadings = `
CREATE TABLE IF NOT EXISTS sensor_readings (
    name      TEXT PRIMARY KEY,
    value     REAL NOT NULL,
    timestamp TIMESTAMP NOT NULL
);
`
