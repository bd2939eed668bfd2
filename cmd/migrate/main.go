package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

const usage = "Usage: go run ./cmd/migrate [drop|up|seed|backfill-uuids|attendee-format]"

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	// Get database URL
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is not set")
	}

	// Get command
	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	command := os.Args[1]

	// Connect to database
	ctx := context.Background()
	conn, err := pgx.Connect(ctx, dbURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer conn.Close(ctx)

	switch command {
	case "drop":
		if err := dropTables(ctx, conn); err != nil {
			log.Fatalf("Failed to drop tables: %v", err)
		}
		fmt.Println("✅ All tables dropped successfully")

	case "up":
		if err := createTables(ctx, conn); err != nil {
			log.Fatalf("Failed to create tables: %v", err)
		}
		fmt.Println("✅ All tables created successfully")

	case "seed":
		if err := seedData(ctx, conn); err != nil {
			log.Fatalf("Failed to seed data: %v", err)
		}
		fmt.Println("✅ Data seeded successfully")

	case "backfill-uuids":
		n, err := backfillEventUUIDs(ctx, conn)
		if err != nil {
			log.Fatalf("Failed to backfill event uuids: %v", err)
		}
		fmt.Printf("✅ Backfilled %d event uuids\n", n)

	case "attendee-format":
		if err := normalizeAttendees(ctx, conn); err != nil {
			log.Fatalf("Failed to normalize attendees: %v", err)
		}
		fmt.Println("✅ Attendee lists normalized successfully")

	default:
		fmt.Printf("Unknown command: %s\n", command)
		fmt.Println(usage)
		os.Exit(1)
	}
}

func dropTables(ctx context.Context, conn *pgx.Conn) error {
	queries := []string{
		`DROP TABLE IF EXISTS terms CASCADE`,
		`DROP TABLE IF EXISTS events CASCADE`,
		`DROP TABLE IF EXISTS users CASCADE`,
	}

	for _, query := range queries {
		if _, err := conn.Exec(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
		fmt.Printf("  Dropped: %s\n", query)
	}

	return nil
}

func createTables(ctx context.Context, conn *pgx.Conn) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			email TEXT UNIQUE,
			password_hash TEXT NOT NULL DEFAULT '',
			first_name VARCHAR(50) NOT NULL DEFAULT '',
			last_name VARCHAR(50) NOT NULL DEFAULT '',
			nickname VARCHAR(30) NOT NULL DEFAULT '',
			prefer_nickname BOOLEAN NOT NULL DEFAULT false,
			role VARCHAR(10) NOT NULL DEFAULT 'PLAIN',
			refresh_token TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		// Attendees, guests and recurrence are embedded documents
		`CREATE TABLE IF NOT EXISTS events (
			id TEXT PRIMARY KEY,
			uuid TEXT UNIQUE NOT NULL,
			name VARCHAR(50) NOT NULL,
			place VARCHAR(50) NOT NULL DEFAULT '',
			owner_id TEXT NOT NULL,
			type VARCHAR(10) NOT NULL,
			start_time VARCHAR(5) NOT NULL,
			end_time VARCHAR(5) NOT NULL,
			date DATE,
			recurrence JSONB,
			administrators TEXT[] NOT NULL DEFAULT '{}',
			attendees JSONB NOT NULL DEFAULT '[]',
			guests JSONB NOT NULL DEFAULT '[]',
			min_attendees INTEGER NOT NULL DEFAULT 0,
			max_attendees INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		// No foreign key to events; cascades are done by the application
		`CREATE TABLE IF NOT EXISTS terms (
			id TEXT PRIMARY KEY,
			event_id TEXT NOT NULL,
			date DATE NOT NULL,
			start_time VARCHAR(5) NOT NULL,
			end_time VARCHAR(5) NOT NULL,
			attendees JSONB NOT NULL DEFAULT '[]',
			statistics JSONB,
			UNIQUE (event_id, date)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_events_owner_id ON events(owner_id)`,
		`CREATE INDEX IF NOT EXISTS idx_events_administrators ON events USING GIN (administrators)`,
		`CREATE INDEX IF NOT EXISTS idx_events_attendees ON events USING GIN (attendees jsonb_path_ops)`,
		`CREATE INDEX IF NOT EXISTS idx_terms_attendees ON terms USING GIN (attendees jsonb_path_ops)`,
		`CREATE INDEX IF NOT EXISTS idx_users_refresh_token ON users(refresh_token)`,
	}

	for _, query := range queries {
		if _, err := conn.Exec(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %w\nQuery: %s", err, query)
		}
		fmt.Printf("  Created: %s\n", getTableName(query))
	}

	return nil
}

func seedData(ctx context.Context, conn *pgx.Conn) error {
	hash, err := bcrypt.GenerateFromPassword([]byte("Orgie1234"), 10)
	if err != nil {
		return fmt.Errorf("failed to hash seed password: %w", err)
	}

	ownerID := uuid.NewString()
	if _, err := conn.Exec(ctx, `
		INSERT INTO users (id, email, password_hash, first_name, last_name, role)
		VALUES ($1, 'demo@orgie.local', $2, 'Demo', 'Owner', 'ADMIN')
		ON CONFLICT (email) DO NOTHING`, ownerID, string(hash)); err != nil {
		return fmt.Errorf("failed to seed user: %w", err)
	}
	if err := conn.QueryRow(ctx, `SELECT id FROM users WHERE email = 'demo@orgie.local'`).Scan(&ownerID); err != nil {
		return fmt.Errorf("failed to load seed user: %w", err)
	}

	eventID := uuid.NewString()
	if _, err := conn.Exec(ctx, `
		INSERT INTO events (id, uuid, name, place, owner_id, type, start_time, end_time, recurrence, administrators)
		VALUES ($1, $2, 'Monday Futsal', 'City Gym', $3, 'RECURRING', '18:00', '19:30',
			'{"frequency":"WEEKLY","weekDays":[1]}', ARRAY[$3])`,
		eventID, uuid.NewString(), ownerID); err != nil {
		return fmt.Errorf("failed to seed event: %w", err)
	}

	// four past Mondays so the statistics view has something to show
	monday := time.Now().UTC().Truncate(24 * time.Hour)
	for monday.Weekday() != time.Monday {
		monday = monday.AddDate(0, 0, -1)
	}
	batch := &pgx.Batch{}
	for i := 1; i <= 4; i++ {
		batch.Queue(`
			INSERT INTO terms (id, event_id, date, start_time, end_time, attendees)
			VALUES ($1, $2, $3, '18:00', '19:30', $4::jsonb)
			ON CONFLICT (event_id, date) DO NOTHING`,
			uuid.NewString(), eventID, monday.AddDate(0, 0, -7*i),
			fmt.Sprintf(`[{"id":%q,"kind":"USER"}]`, ownerID))
	}
	if err := conn.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to seed terms: %w", err)
	}

	fmt.Printf("  Seeded event %s owned by demo@orgie.local\n", eventID)
	return nil
}

// backfillEventUUIDs gives events created before public links existed a uuid
func backfillEventUUIDs(ctx context.Context, conn *pgx.Conn) (int, error) {
	rows, err := conn.Query(ctx, `SELECT id FROM events WHERE uuid IS NULL OR uuid = ''`)
	if err != nil {
		return 0, fmt.Errorf("failed to query events: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return 0, fmt.Errorf("failed to scan events: %w", err)
	}

	for _, id := range ids {
		if _, err := conn.Exec(ctx, `UPDATE events SET uuid = $2, updated_at = NOW() WHERE id = $1`, id, uuid.NewString()); err != nil {
			return 0, fmt.Errorf("failed to update event %s: %w", id, err)
		}
	}
	return len(ids), nil
}

// normalizeAttendees rewrites bare string ids and entries without a kind
// into {"id", "kind"} objects, keeping list order
func normalizeAttendees(ctx context.Context, conn *pgx.Conn) error {
	const rewrite = `
		UPDATE %s SET attendees = (
			SELECT COALESCE(jsonb_agg(
				CASE
					WHEN jsonb_typeof(elem) = 'string' THEN jsonb_build_object('id', elem #>> '{}', 'kind', 'USER')
					WHEN NOT elem ? 'kind' THEN elem || '{"kind":"USER"}'::jsonb
					ELSE elem
				END ORDER BY ord), '[]'::jsonb)
			FROM jsonb_array_elements(attendees) WITH ORDINALITY AS x(elem, ord)
		)
		WHERE EXISTS (
			SELECT 1 FROM jsonb_array_elements(attendees) AS e(elem)
			WHERE jsonb_typeof(elem) = 'string' OR NOT elem ? 'kind'
		)`

	for _, table := range []string{"events", "terms"} {
		tag, err := conn.Exec(ctx, fmt.Sprintf(rewrite, table))
		if err != nil {
			return fmt.Errorf("failed to normalize %s: %w", table, err)
		}
		fmt.Printf("  Normalized %d rows in %s\n", tag.RowsAffected(), table)
	}
	return nil
}

func getTableName(query string) string {
	fields := strings.Fields(query)
	for i, f := range fields {
		if strings.EqualFold(f, "EXISTS") && i+1 < len(fields) {
			return strings.TrimSuffix(fields[i+1], "(")
		}
	}
	return "query"
}
