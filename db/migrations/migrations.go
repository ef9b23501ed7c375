package migrations

import "embed"

// FS embeds the SQL migrations creating the kv_entries table used by the
// postgres backing store. golang-migrate reads them via the iofs driver.
//
//go:embed *.sql
var FS embed.FS

// Version is the schema version Migrate moves the database to.
const Version = 1
