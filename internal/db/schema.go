package db

import "gorm.io/gorm"

// EnsureSchema creates a Postgres schema if it does not exist yet.
func EnsureSchema(d *gorm.DB, schema string) error {
	return d.Exec(`CREATE SCHEMA IF NOT EXISTS "` + schema + `"`).Error
}

// EnsureUUIDExtension enables uuid-ossp so models can default to uuid_generate_v4().
func EnsureUUIDExtension(d *gorm.DB) error {
	return d.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`).Error
}
