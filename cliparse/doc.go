// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

ParseFlags returns a Config struct with all settings:

	cfg, err := cliparse.ParseFlags(os.Args[1:])

Values are layered, later layers overriding earlier ones:

 1. built-in defaults
 2. YAML file from -c or CONFIG_FILE
 3. environment variables (a .env file in the working directory is loaded first)
 4. CLI flags that were explicitly given

# Config Fields

  - Port: Server listen port (default: 3318)
  - DatabaseURL: Database connection string (required)
  - DatabaseType: sqlite or postgres (default: sqlite)
  - AdminKeySalt: Secret for admin key HMAC (required)
  - JWTSecret, JWTIssuer: Bearer token verification; empty secret disables it
  - RedisURL: Shared rate limiter; empty uses the in-process limiter
  - RateLimitMaxAttempts, RateLimitWindow: Vote attempts per window (default: 5 per 60s)
  - AllowVoteChange: Repeat voters replace their vote (default: true)
  - KafkaBrokers, KafkaTopic: Vote event stream; no brokers disables it
  - LogLevel: debug, info, warn or error (default: info)

# CLI Flags

	-c                 Config file
	-p                 Server port
	-d                 Database URL
	-t                 Database type
	-redis             Redis URL
	-log-level         Log level
	-allow-vote-change Vote change policy
	-admin-salt        Admin key salt
	-jwt-secret        JWT secret

# Environment Variables

	PORT, DATABASE_URL, DATABASE_TYPE, ADMIN_KEY_SALT, JWT_SECRET, JWT_ISSUER,
	REDIS_URL, RATE_LIMIT_MAX_ATTEMPTS, RATE_LIMIT_WINDOW, ALLOW_VOTE_CHANGE,
	KAFKA_BROKERS (comma separated), KAFKA_TOPIC, LOG_LEVEL, CONFIG_FILE
*/
package cliparse
