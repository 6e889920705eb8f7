package testhelpers

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/OHDSI/Hecate/pkg/database"
)

// vocabTestImage is the stock PostgreSQL image; the vocabulary schema is
// small enough to create at startup instead of baking into a custom image.
const vocabTestImage = "postgres:16-alpine"

// vocabSchema creates the subset of OMOP CDM vocabulary tables the
// repository queries, with a fixed fixture hierarchy:
//
//	1 "Hypertensive disorder" (S, cond) -- ancestor of 2, 3 (levels 1, 2), of itself (level 0)
//	2 "Malignant hypertension" (S)      -- "Is a" 1; 4 and 5 map to it
//	3 "Secondary hypertension" (S)
//	4 "Hypertension NOS" (non-standard, maps to 2)
//	5 "HTN, invalid map" (maps to 2 with invalid_reason set, must not surface)
//	6 "Pulse taking" (recommended for 1)
const vocabSchema = `
CREATE SCHEMA cdm;

CREATE TABLE cdm.concept (
	concept_id       integer PRIMARY KEY,
	concept_name     text NOT NULL,
	vocabulary_id    text NOT NULL,
	domain_id        text NOT NULL,
	concept_class_id text NOT NULL,
	standard_concept text,
	invalid_reason   text,
	concept_code     text NOT NULL
);

CREATE TABLE cdm.concept_relationship (
	concept_id_1    integer NOT NULL,
	concept_id_2    integer NOT NULL,
	relationship_id text NOT NULL,
	invalid_reason  text
);

CREATE TABLE cdm.concept_ancestor (
	ancestor_concept_id      integer NOT NULL,
	descendant_concept_id    integer NOT NULL,
	min_levels_of_separation integer NOT NULL
);

CREATE TABLE cdm.concept_recommended (
	concept_id_1    integer NOT NULL,
	concept_id_2    integer NOT NULL,
	relationship_id text NOT NULL
);

INSERT INTO cdm.concept VALUES
	(1, 'Hypertensive disorder',  'SNOMED', 'Condition', 'Clinical Finding', 'S',  NULL, '38341003'),
	(2, 'Malignant hypertension', 'SNOMED', 'Condition', 'Clinical Finding', 'S',  NULL, '70272006'),
	(3, 'Secondary hypertension', 'SNOMED', 'Condition', 'Clinical Finding', 'S',  NULL, '31992008'),
	(4, 'Hypertension NOS',       'ICD10',  'Condition', 'ICD10 code',       NULL, 'U',  'I10'),
	(5, 'HTN, invalid map',       'ICD10',  'Condition', 'ICD10 code',       NULL, 'D',  'I10.9'),
	(6, 'Pulse taking',           'SNOMED', 'Procedure', 'Procedure',        'S',  NULL, '163000');

INSERT INTO cdm.concept_relationship VALUES
	(2, 1, 'Is a',    NULL),
	(4, 2, 'Maps to', NULL),
	(5, 2, 'Maps to', 'D');

INSERT INTO cdm.concept_ancestor VALUES
	(1, 1, 0),
	(1, 2, 1),
	(1, 3, 2);

INSERT INTO cdm.concept_recommended VALUES
	(1, 6, 'Recommended');
`

// TestDB holds a shared test database container and connection pool.
type TestDB struct {
	Container testcontainers.Container
	DB        *database.DB
	ConnStr   string
}

var (
	sharedTestDB     *TestDB
	sharedTestDBOnce sync.Once
	sharedTestDBErr  error
)

// GetTestDB returns a shared PostgreSQL container with the vocabulary
// fixture loaded. The container is created once and reused across all tests
// in the run.
func GetTestDB(t *testing.T) *TestDB {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}

	sharedTestDBOnce.Do(func() {
		sharedTestDB, sharedTestDBErr = setupTestDB()
	})

	if sharedTestDBErr != nil {
		t.Fatalf("Failed to setup test database: %v", sharedTestDBErr)
	}

	return sharedTestDB
}

func setupTestDB() (*TestDB, error) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        vocabTestImage,
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_DB":       "vocab_test",
			"POSTGRES_USER":     "hecate",
			"POSTGRES_PASSWORD": "test_password",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start test container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get container host: %w", err)
	}

	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		return nil, fmt.Errorf("failed to get container port: %w", err)
	}

	connStr := fmt.Sprintf("postgres://hecate:test_password@%s:%s/vocab_test?sslmode=disable",
		host, port.Port())

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Verify connection with retry
	for i := 0; i < 10; i++ {
		if err := pool.Ping(ctx); err == nil {
			break
		}
		time.Sleep(500 * time.Millisecond)
	}

	if _, err := pool.Exec(ctx, vocabSchema); err != nil {
		return nil, fmt.Errorf("failed to load vocabulary fixture: %w", err)
	}

	return &TestDB{
		Container: container,
		DB:        &database.DB{Pool: pool},
		ConnStr:   connStr,
	}, nil
}
