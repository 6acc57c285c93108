// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db handles database connections, schema creation and vote storage.

# Connecting

Open picks the driver from the dialect and verifies the connection:

	conn, err := db.Open(db.SQLite, "quickly-vote.db")
	if err != nil {
		log.Fatal(err)
	}
	if err := db.CreateSchema(conn); err != nil {
		log.Fatal(err)
	}

SQLite (modernc.org/sqlite) runs on a single connection with foreign keys
enabled. PostgreSQL uses github.com/lib/pq.

CreateSchema is safe to call multiple times - uses IF NOT EXISTS for all
tables and indexes.

# Tables

  - poll: Poll metadata, policy flags and the total vote counter
  - poll_option: Options per poll in display order, with a vote counter
  - vote: One row per selected option per voter
  - poll_analytics: Vote events as JSON metadata

# Relationships

	poll 1──* poll_option
	poll 1──* vote *──1 poll_option
	poll 1──* poll_analytics

All foreign keys use ON DELETE CASCADE. vote is unique on
(poll_id, voter_fingerprint, option_id).

# Store

Store implements the persistence the voting service needs. ReplaceVotes runs
its delete, insert and counter refresh in one transaction, and reports a
unique violation from either driver as models.ErrDuplicateVote.
*/
package db
