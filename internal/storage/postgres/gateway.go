// internal/storage/postgres/gateway.go
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	verrors "loan-verification/internal/common/errors"
	"loan-verification/internal/common/logger"
	"loan-verification/internal/models"
)

// Gateway implements verification.PersistenceGateway over PostgreSQL. Step
// records live in verification_step_records keyed by (application_id,
// step_ordinal); applicant, animal, and family member rows hang off
// loan_applications.
type Gateway struct {
	db     *sql.DB
	logger logger.Logger
}

func NewGateway(db *sql.DB, log logger.Logger) *Gateway {
	return &Gateway{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "postgres-gateway"}),
	}
}

// LoadApplication loads the full aggregate. A missing application row maps to
// APPLICATION_NOT_FOUND; a present application missing its applicant or
// animal row maps to INTEGRITY_VIOLATION.
func (g *Gateway) LoadApplication(ctx context.Context, applicationID string) (*models.LoanApplication, error) {
	app := &models.LoanApplication{ID: applicationID}

	var metadataJSON []byte
	err := g.db.QueryRowContext(ctx, `
		SELECT application_number, status, loan_amount, interest_rate,
		       purpose, repayment_periods, metadata, created_at, updated_at
		FROM loan_applications
		WHERE id = $1`, applicationID).Scan(
		&app.ApplicationNumber, &app.Status, &app.LoanAmount, &app.InterestRate,
		&app.Purpose, &app.RepaymentPeriods, &metadataJSON, &app.CreatedAt, &app.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, verrors.NewApplicationNotFoundError(applicationID)
	}
	if err != nil {
		return nil, g.storageErr("load_application", err)
	}
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &app.Metadata); err != nil {
			return nil, verrors.NewIntegrityViolationError(applicationID, "metadata")
		}
	}

	applicant, err := g.loadApplicant(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	app.Applicant = applicant

	animal, err := g.loadAnimal(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	app.Animal = animal

	records, err := g.loadStepRecords(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	app.StepOutputs = records

	g.logger.Info("application loaded", map[string]interface{}{
		"applicationId": applicationID,
		"status":        app.Status.String(),
		"stepRecords":   len(records),
	})
	return app, nil
}

func (g *Gateway) loadApplicant(ctx context.Context, applicationID string) (*models.Applicant, error) {
	a := &models.Applicant{}
	err := g.db.QueryRowContext(ctx, `
		SELECT name, email, phone, address, national_id,
		       COALESCE(tax_id, ''), bank_name, bank_account, annual_income
		FROM applicants
		WHERE application_id = $1`, applicationID).Scan(
		&a.Name, &a.Email, &a.Phone, &a.Address, &a.NationalID,
		&a.TaxID, &a.BankName, &a.BankAccount, &a.AnnualIncome,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, verrors.NewIntegrityViolationError(applicationID, "applicant")
	}
	if err != nil {
		return nil, g.storageErr("load_applicant", err)
	}

	rows, err := g.db.QueryContext(ctx, `
		SELECT name, relationship, age, COALESCE(occupation, '')
		FROM family_members
		WHERE application_id = $1
		ORDER BY id`, applicationID)
	if err != nil {
		return nil, g.storageErr("load_family_members", err)
	}
	defer rows.Close()

	for rows.Next() {
		var m models.FamilyMember
		if err := rows.Scan(&m.Name, &m.Relationship, &m.Age, &m.Occupation); err != nil {
			return nil, g.storageErr("load_family_members", err)
		}
		a.FamilyMembers = append(a.FamilyMembers, m)
	}
	if err := rows.Err(); err != nil {
		return nil, g.storageErr("load_family_members", err)
	}
	return a, nil
}

func (g *Gateway) loadAnimal(ctx context.Context, applicationID string) (*models.Animal, error) {
	an := &models.Animal{}
	err := g.db.QueryRowContext(ctx, `
		SELECT species, breed, age_months, weight_kg,
		       health_status, vaccination_status, market_value
		FROM animals
		WHERE application_id = $1`, applicationID).Scan(
		&an.Species, &an.Breed, &an.AgeMonths, &an.WeightKg,
		&an.HealthStatus, &an.VaccinationStatus, &an.MarketValue,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, verrors.NewIntegrityViolationError(applicationID, "animal")
	}
	if err != nil {
		return nil, g.storageErr("load_animal", err)
	}
	return an, nil
}

func (g *Gateway) loadStepRecords(ctx context.Context, applicationID string) (map[int]*models.StepRecord, error) {
	rows, err := g.db.QueryContext(ctx, `
		SELECT step_ordinal, data, completed, completed_at
		FROM verification_step_records
		WHERE application_id = $1
		ORDER BY step_ordinal`, applicationID)
	if err != nil {
		return nil, g.storageErr("load_step_records", err)
	}
	defer rows.Close()

	records := make(map[int]*models.StepRecord)
	for rows.Next() {
		var (
			ordinal     int
			dataJSON    []byte
			completed   bool
			completedAt sql.NullTime
		)
		if err := rows.Scan(&ordinal, &dataJSON, &completed, &completedAt); err != nil {
			return nil, g.storageErr("load_step_records", err)
		}

		rec := models.NewStepRecord()
		rec.Completed = completed
		if completedAt.Valid {
			at := completedAt.Time.UTC()
			rec.CompletedAt = &at
		}
		if len(dataJSON) > 0 {
			if err := json.Unmarshal(dataJSON, &rec.Data); err != nil {
				return nil, verrors.NewIntegrityViolationError(applicationID,
					fmt.Sprintf("step_record[%d].data", ordinal))
			}
		}
		records[ordinal] = rec
	}
	if err := rows.Err(); err != nil {
		return nil, g.storageErr("load_step_records", err)
	}
	return records, nil
}

// SaveStepRecord upserts one step record and bumps a pending application to
// under_verification, in a single transaction.
func (g *Gateway) SaveStepRecord(ctx context.Context, applicationID string, ordinal int, record *models.StepRecord) error {
	dataJSON, err := json.Marshal(record.Data)
	if err != nil {
		return verrors.NewPersistenceFailedError("save_step_record", err)
	}

	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return g.storageErr("save_step_record", err)
	}
	defer tx.Rollback()

	var completedAt interface{}
	if record.CompletedAt != nil {
		completedAt = record.CompletedAt.UTC()
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO verification_step_records (
			application_id, step_ordinal, data, completed, completed_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (application_id, step_ordinal)
		DO UPDATE SET data = $3, completed = $4, completed_at = $5, updated_at = $6`,
		applicationID, ordinal, dataJSON, record.Completed, completedAt, time.Now().UTC(),
	)
	if err != nil {
		return g.storageErr("save_step_record", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE loan_applications
		SET status = $2, updated_at = $3
		WHERE id = $1 AND status = $4`,
		applicationID, models.StatusUnderVerification, time.Now().UTC(), models.StatusPending,
	)
	if err != nil {
		return g.storageErr("save_step_record", err)
	}

	if err := tx.Commit(); err != nil {
		return g.storageErr("save_step_record", err)
	}

	g.logger.Info("step record saved", map[string]interface{}{
		"applicationId": applicationID,
		"ordinal":       ordinal,
		"completed":     record.Completed,
	})
	return nil
}

// CompleteVerification writes all records and flips the status to verified in
// one transaction. A failure anywhere rolls the whole commit back.
func (g *Gateway) CompleteVerification(ctx context.Context, applicationID string, records map[int]*models.StepRecord) error {
	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return g.storageErr("complete_verification", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for ordinal, record := range records {
		dataJSON, err := json.Marshal(record.Data)
		if err != nil {
			return verrors.NewPersistenceFailedError("complete_verification", err)
		}
		var completedAt interface{}
		if record.CompletedAt != nil {
			completedAt = record.CompletedAt.UTC()
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO verification_step_records (
				application_id, step_ordinal, data, completed, completed_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (application_id, step_ordinal)
			DO UPDATE SET data = $3, completed = $4, completed_at = $5, updated_at = $6`,
			applicationID, ordinal, dataJSON, record.Completed, completedAt, now,
		)
		if err != nil {
			return g.storageErr("complete_verification", err)
		}
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE loan_applications
		SET status = $2, updated_at = $3
		WHERE id = $1`,
		applicationID, models.StatusVerified, now,
	)
	if err != nil {
		return g.storageErr("complete_verification", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return verrors.NewApplicationNotFoundError(applicationID)
	}

	if err := tx.Commit(); err != nil {
		return g.storageErr("complete_verification", err)
	}

	g.logger.Info("verification committed", map[string]interface{}{
		"applicationId": applicationID,
		"stepRecords":   len(records),
	})
	return nil
}

// StepStatus probes completion directly from the store.
func (g *Gateway) StepStatus(ctx context.Context, applicationID string, ordinal int) (bool, error) {
	var completed bool
	err := g.db.QueryRowContext(ctx, `
		SELECT completed
		FROM verification_step_records
		WHERE application_id = $1 AND step_ordinal = $2`,
		applicationID, ordinal).Scan(&completed)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, g.storageErr("step_status", err)
	}
	return completed, nil
}

// storageErr maps driver errors to the retryable taxonomy. Deadline and
// cancellation failures are ambiguous: the write may have landed.
func (g *Gateway) storageErr(operation string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return verrors.NewPersistenceTimeoutError(operation, err)
	}
	return verrors.NewPersistenceFailedError(operation, err)
}
