// test/e2e/e2e_test.go
package e2e

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loan-verification/internal/common/config"
	"loan-verification/internal/common/database"
	"loan-verification/internal/common/logger"
	"loan-verification/internal/storage/postgres"
	"loan-verification/internal/storage/rediscache"
	"loan-verification/internal/verification"
)

// capturingDispatcher stands in for SES/SNS so the e2e run needs no AWS
// credentials.
type capturingDispatcher struct {
	events []verification.EventKind
}

func (d *capturingDispatcher) Dispatch(_ context.Context, _ string, kind verification.EventKind, _ map[string]interface{}) error {
	d.events = append(d.events, kind)
	return nil
}

func validStepData(ordinal int) map[string]interface{} {
	switch ordinal {
	case 0:
		return map[string]interface{}{
			"identity_confirmed": true, "address_confirmed": true, "contact_confirmed": true,
		}
	case 1:
		return map[string]interface{}{
			"id_document_verified": true, "bank_statement_verified": true, "income_proof_verified": true,
		}
	case 2:
		return map[string]interface{}{
			"income_verified": true, "loan_amount_appropriate": true,
			"repayment_capacity_verified": true, "credit_assessment_completed": true,
		}
	case 3:
		return map[string]interface{}{
			"health_check_passed": true, "vaccination_verified": true, "market_value_confirmed": true,
		}
	case 4:
		return map[string]interface{}{
			"verification_summary": "full e2e pass", "operator_confirmation": true,
		}
	}
	return nil
}

func TestFullVerificationE2E(t *testing.T) {
	if os.Getenv("E2E") == "" {
		t.Skip("set E2E=1 to run against real PostgreSQL and Redis")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	cfg, err := config.Load()
	require.NoError(t, err)
	cfg.Database.Postgres.Host = "localhost"
	cfg.Database.Redis.Address = "localhost:6379"

	pg, err := database.NewPostgres(cfg.Database.Postgres)
	require.NoError(t, err, "PostgreSQL connection failed")
	defer pg.Close()
	require.NoError(t, pg.Ping(ctx))

	rdb, err := database.NewRedis(cfg.Database.Redis)
	require.NoError(t, err, "Redis connection failed")
	defer rdb.Close()
	require.NoError(t, rdb.Ping(ctx))

	createTables(t, pg)
	appID := insertTestApplication(t, pg)

	log := logger.NewTestLogger(t)
	var gateway verification.PersistenceGateway = postgres.NewGateway(pg.DB, log)
	gateway = rediscache.NewGateway(gateway, rdb.Client, time.Hour, log)
	dispatcher := &capturingDispatcher{}

	controller := verification.NewController(gateway, dispatcher, log)
	require.NoError(t, controller.Start(ctx, appID))

	for ordinal := 0; ordinal <= 4; ordinal++ {
		res, err := controller.SubmitStep(ctx, ordinal, validStepData(ordinal))
		require.NoError(t, err, "ordinal %d", ordinal)
		require.True(t, res.Validation.Valid, "ordinal %d: %v", ordinal, res.Validation.Errors)
	}

	assert.Equal(t, verification.StateTerminal, controller.State())
	assert.Equal(t, []verification.EventKind{
		verification.EventFirstStepCompleted,
		verification.EventAllVerificationsComplete,
	}, dispatcher.events)

	var status string
	require.NoError(t, pg.DB.QueryRowContext(ctx,
		`SELECT status FROM loan_applications WHERE id = $1`, appID).Scan(&status))
	assert.Equal(t, "verified", status)

	// Resuming a terminal application lands on the review step with
	// everything completed.
	resumed := verification.NewController(gateway, &capturingDispatcher{}, log)
	require.NoError(t, resumed.Start(ctx, appID))
	assert.True(t, resumed.Session().AllCompleted())
}

func createTables(t *testing.T, pg *database.PostgresClient) {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS loan_applications (
			id TEXT PRIMARY KEY,
			application_number TEXT NOT NULL,
			status TEXT NOT NULL,
			loan_amount DOUBLE PRECISION NOT NULL,
			interest_rate DOUBLE PRECISION NOT NULL,
			purpose TEXT NOT NULL,
			repayment_periods INT NOT NULL,
			metadata JSONB,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS applicants (
			application_id TEXT PRIMARY KEY REFERENCES loan_applications(id),
			name TEXT NOT NULL,
			email TEXT NOT NULL,
			phone TEXT NOT NULL,
			address TEXT NOT NULL,
			national_id TEXT NOT NULL,
			tax_id TEXT,
			bank_name TEXT NOT NULL,
			bank_account TEXT NOT NULL,
			annual_income DOUBLE PRECISION NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS family_members (
			id SERIAL PRIMARY KEY,
			application_id TEXT NOT NULL REFERENCES loan_applications(id),
			name TEXT NOT NULL,
			relationship TEXT NOT NULL,
			age INT NOT NULL,
			occupation TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS animals (
			application_id TEXT PRIMARY KEY REFERENCES loan_applications(id),
			species TEXT NOT NULL,
			breed TEXT NOT NULL,
			age_months INT NOT NULL,
			weight_kg DOUBLE PRECISION NOT NULL,
			health_status TEXT NOT NULL,
			vaccination_status TEXT NOT NULL,
			market_value DOUBLE PRECISION NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS verification_step_records (
			application_id TEXT NOT NULL REFERENCES loan_applications(id),
			step_ordinal INT NOT NULL,
			data JSONB NOT NULL,
			completed BOOLEAN NOT NULL DEFAULT FALSE,
			completed_at TIMESTAMPTZ,
			updated_at TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (application_id, step_ordinal)
		)`,
	}
	for _, stmt := range stmts {
		_, err := pg.DB.Exec(stmt)
		require.NoError(t, err)
	}
}

func insertTestApplication(t *testing.T, pg *database.PostgresClient) string {
	appID := uuid.New().String()
	now := time.Now().UTC().Format(time.RFC3339)

	_, err := pg.DB.Exec(`
		INSERT INTO loan_applications (
			id, application_number, status, loan_amount, interest_rate,
			purpose, repayment_periods, metadata, created_at, updated_at
		) VALUES ($1, $2, 'pending', 150000, 12, 'dairy cow purchase', 24, '{}', $3, $3)`,
		appID, fmt.Sprintf("LV-E2E-%d", time.Now().Unix()), now)
	require.NoError(t, err)

	_, err = pg.DB.Exec(`
		INSERT INTO applicants (
			application_id, name, email, phone, address, national_id,
			bank_name, bank_account, annual_income
		) VALUES ($1, 'Ramesh Patil', 'ramesh@example.com', '+919800000042',
			'Wada, Palghar', 'XXXX-4821', 'District Cooperative Bank', '001984211', 360000)`,
		appID)
	require.NoError(t, err)

	_, err = pg.DB.Exec(`
		INSERT INTO animals (
			application_id, species, breed, age_months, weight_kg,
			health_status, vaccination_status, market_value
		) VALUES ($1, 'cattle', 'Gir', 30, 310, 'healthy', 'up_to_date', 95000)`,
		appID)
	require.NoError(t, err)

	return appID
}
