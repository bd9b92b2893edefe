package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrDuplicateDocument is returned when an insert collides with an existing
// document hash. Hash identity is global, not per case.
var ErrDuplicateDocument = errors.New("document hash already exists")

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) InsertCase(ctx context.Context, item Case) (int64, error) {
	status := item.Status
	if status == "" {
		status = "Active"
	}
	var caseID int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO cases (
			case_title, client_name, client_email, client_address,
			lawyer_name, lawyer_email, case_type, description,
			client_wallet, lawyer_wallet, blockchain_tx, status
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING case_id
	`, item.Title, item.ClientName, item.ClientEmail, item.ClientAddress,
		item.LawyerName, item.LawyerEmail, item.CaseType, item.Description,
		item.ClientWallet, item.LawyerWallet, item.BlockchainTx, status,
	).Scan(&caseID)
	if err != nil {
		return 0, fmt.Errorf("insert case: %w", err)
	}
	return caseID, nil
}

func (s *PostgresStore) GetCase(ctx context.Context, caseID int64) (Case, error) {
	var item Case
	err := s.db.QueryRowContext(ctx, `
		SELECT case_id, case_title, client_name, client_email, client_address,
		       lawyer_name, lawyer_email, case_type, description,
		       client_wallet, lawyer_wallet, blockchain_tx, status, created_at
		FROM cases
		WHERE case_id=$1
	`, caseID).Scan(
		&item.ID, &item.Title, &item.ClientName, &item.ClientEmail, &item.ClientAddress,
		&item.LawyerName, &item.LawyerEmail, &item.CaseType, &item.Description,
		&item.ClientWallet, &item.LawyerWallet, &item.BlockchainTx, &item.Status, &item.CreatedAt,
	)
	if err != nil {
		return Case{}, err
	}
	return item, nil
}

func (s *PostgresStore) ListCases(ctx context.Context) ([]Case, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT case_id, case_title, client_name, client_email, client_address,
		       lawyer_name, lawyer_email, case_type, description,
		       client_wallet, lawyer_wallet, blockchain_tx, status, created_at
		FROM cases
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list cases: %w", err)
	}
	defer rows.Close()

	return scanCases(rows)
}

func (s *PostgresStore) SearchCases(ctx context.Context, query string) ([]Case, error) {
	pattern := "%" + query + "%"
	rows, err := s.db.QueryContext(ctx, `
		SELECT case_id, case_title, client_name, client_email, client_address,
		       lawyer_name, lawyer_email, case_type, description,
		       client_wallet, lawyer_wallet, blockchain_tx, status, created_at
		FROM cases
		WHERE case_title ILIKE $1
		   OR client_name ILIKE $1
		   OR lawyer_name ILIKE $1
		   OR case_type ILIKE $1
		ORDER BY created_at DESC
	`, pattern)
	if err != nil {
		return nil, fmt.Errorf("search cases: %w", err)
	}
	defer rows.Close()

	return scanCases(rows)
}

func scanCases(rows *sql.Rows) ([]Case, error) {
	items := make([]Case, 0)
	for rows.Next() {
		var item Case
		if err := rows.Scan(
			&item.ID, &item.Title, &item.ClientName, &item.ClientEmail, &item.ClientAddress,
			&item.LawyerName, &item.LawyerEmail, &item.CaseType, &item.Description,
			&item.ClientWallet, &item.LawyerWallet, &item.BlockchainTx, &item.Status, &item.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan case: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cases: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) UpdateCase(ctx context.Context, caseID int64, update CaseUpdate) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE cases
		SET case_title=$1, client_name=$2, client_email=$3, client_address=$4,
		    lawyer_name=$5, lawyer_email=$6, case_type=$7, description=$8
		WHERE case_id=$9
	`, update.Title, update.ClientName, update.ClientEmail, update.ClientAddress,
		update.LawyerName, update.LawyerEmail, update.CaseType, update.Description, caseID)
	if err != nil {
		return fmt.Errorf("update case: %w", err)
	}
	return requireRow(result)
}

func (s *PostgresStore) UpdateCaseStatus(ctx context.Context, caseID int64, status string) error {
	result, err := s.db.ExecContext(ctx, `UPDATE cases SET status=$1 WHERE case_id=$2`, status, caseID)
	if err != nil {
		return fmt.Errorf("update case status: %w", err)
	}
	return requireRow(result)
}

// requireRow turns a zero-row write into sql.ErrNoRows so missing ids
// surface as NotFound instead of silently succeeding.
func requireRow(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *PostgresStore) DeleteCaseCascade(ctx context.Context, caseID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete case: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM hearings WHERE case_id=$1`, caseID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("delete hearings: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE case_id=$1`, caseID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("delete documents: %w", err)
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM cases WHERE case_id=$1`, caseID)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("delete case: %w", err)
	}
	if err := requireRow(result); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete case: %w", err)
	}
	return nil
}

func (s *PostgresStore) CaseStats(ctx context.Context) (CaseStats, error) {
	var stats CaseStats
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE status='Active'),
		       COUNT(*) FILTER (WHERE status='Closed'),
		       COUNT(*) FILTER (WHERE status='Pending')
		FROM cases
	`).Scan(&stats.Total, &stats.Active, &stats.Closed, &stats.Pending)
	if err != nil {
		return CaseStats{}, fmt.Errorf("case stats: %w", err)
	}
	return stats, nil
}

func (s *PostgresStore) GetCaseContext(ctx context.Context, caseID int64) (title, caseType, description string, err error) {
	err = s.db.QueryRowContext(ctx, `
		SELECT case_title, case_type, description FROM cases WHERE case_id=$1
	`, caseID).Scan(&title, &caseType, &description)
	return title, caseType, description, err
}

func (s *PostgresStore) InsertDocument(ctx context.Context, item Document) (int64, error) {
	var docID int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO documents (case_id, document_name, document_hash, document_type, uploaded_by, blockchain_tx)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (document_hash) DO NOTHING
		RETURNING doc_id
	`, item.CaseID, item.Name, item.Hash, item.Type, item.UploadedBy, item.BlockchainTx).Scan(&docID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrDuplicateDocument
	}
	if err != nil {
		return 0, fmt.Errorf("insert document: %w", err)
	}
	return docID, nil
}

func (s *PostgresStore) ListDocumentsByCase(ctx context.Context, caseID int64) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT doc_id, case_id, document_name, document_hash, document_type, uploaded_by, blockchain_tx, uploaded_at
		FROM documents
		WHERE case_id=$1
		ORDER BY uploaded_at DESC
	`, caseID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	items := make([]Document, 0)
	for rows.Next() {
		var item Document
		if err := rows.Scan(&item.ID, &item.CaseID, &item.Name, &item.Hash, &item.Type, &item.UploadedBy, &item.BlockchainTx, &item.UploadedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) GetDocumentByHash(ctx context.Context, hash string) (Document, error) {
	var item Document
	err := s.db.QueryRowContext(ctx, `
		SELECT doc_id, case_id, document_name, document_hash, document_type, uploaded_by, blockchain_tx, uploaded_at
		FROM documents
		WHERE document_hash=$1
	`, hash).Scan(&item.ID, &item.CaseID, &item.Name, &item.Hash, &item.Type, &item.UploadedBy, &item.BlockchainTx, &item.UploadedAt)
	if err != nil {
		return Document{}, err
	}
	return item, nil
}

func (s *PostgresStore) InsertHearing(ctx context.Context, item Hearing) (int64, error) {
	var hearingID int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO hearings (case_id, hearing_date, hearing_time, court_name, notes)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING hearing_id
	`, item.CaseID, item.Date, item.Time, item.CourtName, item.Notes).Scan(&hearingID)
	if err != nil {
		return 0, fmt.Errorf("insert hearing: %w", err)
	}
	return hearingID, nil
}

func (s *PostgresStore) ListHearingsByCase(ctx context.Context, caseID int64) ([]Hearing, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT hearing_id, case_id, hearing_date, hearing_time, court_name, notes, created_at
		FROM hearings
		WHERE case_id=$1
		ORDER BY hearing_date DESC
	`, caseID)
	if err != nil {
		return nil, fmt.Errorf("list hearings: %w", err)
	}
	defer rows.Close()

	items := make([]Hearing, 0)
	for rows.Next() {
		var item Hearing
		if err := rows.Scan(&item.ID, &item.CaseID, &item.Date, &item.Time, &item.CourtName, &item.Notes, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan hearing: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate hearings: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
