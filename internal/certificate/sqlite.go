package certificate

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"
)

type SqliteStore struct {
	db *sql.DB
}

func NewSqliteStore(dbPath string) (*SqliteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	store := &SqliteStore{db: db}
	if err := store.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	return store, nil
}

func (s *SqliteStore) Init() error {
	// Certificates table
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS certificates (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			tax_id TEXT NOT NULL,
			type TEXT NOT NULL CHECK (type IN ('A1', 'A3')),
			expires_at DATETIME NOT NULL,
			password_cipher BLOB,
			notification_emails TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'PENDING' CHECK (status IN ('PENDING', 'COMPLETED')),
			last_notified_at DATETIME,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to create certificates table: %w", err)
	}

	// Configuration table
	_, err = s.db.Exec(`
		CREATE TABLE IF NOT EXISTS configuration (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to create configuration table: %w", err)
	}

	// Credentials table
	_, err = s.db.Exec(`
		CREATE TABLE IF NOT EXISTS credentials (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to create credentials table: %w", err)
	}

	// Scheduler status table
	_, err = s.db.Exec(`
		CREATE TABLE IF NOT EXISTS scheduler_status (
			id INTEGER PRIMARY KEY,
			is_active BOOLEAN NOT NULL DEFAULT 1,
			last_updated DATETIME NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to create scheduler_status table: %w", err)
	}

	// Initialize scheduler status if not exists
	var count int
	err = s.db.QueryRow("SELECT COUNT(*) FROM scheduler_status").Scan(&count)
	if err != nil {
		return fmt.Errorf("failed to check scheduler status: %w", err)
	}
	if count == 0 {
		_, err = s.db.Exec("INSERT INTO scheduler_status (id, is_active, last_updated) VALUES (1, 1, ?)", time.Now())
		if err != nil {
			return fmt.Errorf("failed to initialize scheduler status: %w", err)
		}
	}

	// Set default days threshold if not present
	err = s.db.QueryRow("SELECT COUNT(*) FROM configuration WHERE key = 'days_threshold'").Scan(&count)
	if err != nil {
		return fmt.Errorf("failed to check for days threshold configuration: %w", err)
	}
	if count == 0 {
		_, err = s.db.Exec("INSERT INTO configuration (key, value) VALUES ('days_threshold', '10')")
		if err != nil {
			return fmt.Errorf("failed to insert default days threshold configuration: %w", err)
		}
	}

	// Set default scan schedule if not present: daily at 09:00
	err = s.db.QueryRow("SELECT COUNT(*) FROM configuration WHERE key = 'scan_schedule'").Scan(&count)
	if err != nil {
		return fmt.Errorf("failed to check for scan schedule configuration: %w", err)
	}
	if count == 0 {
		_, err = s.db.Exec("INSERT INTO configuration (key, value) VALUES ('scan_schedule', '0 9 * * *')")
		if err != nil {
			return fmt.Errorf("failed to insert default scan schedule configuration: %w", err)
		}
	}

	return nil
}

func (s *SqliteStore) Close() error {
	return s.db.Close()
}

// CreateCertificate stores a new certificate and returns its id.
func (s *SqliteStore) CreateCertificate(cert Certificate) (int64, error) {
	emails, err := json.Marshal(cert.NotificationEmails)
	if err != nil {
		return 0, fmt.Errorf("failed to encode notification emails: %w", err)
	}

	if cert.Status == "" {
		cert.Status = StatusPending
	}

	now := time.Now()
	res, err := s.db.Exec(
		`INSERT INTO certificates (name, tax_id, type, expires_at, password_cipher, notification_emails, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		cert.Name, cert.TaxID, string(cert.Type), cert.ExpiresAt, cert.PasswordCipher, string(emails), string(cert.Status), now, now,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to store certificate: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read new certificate id: %w", err)
	}
	return id, nil
}

// ErrNotFound is returned when a certificate id does not exist.
var ErrNotFound = errors.New("certificate not found")

const certColumns = "id, name, tax_id, type, expires_at, password_cipher, notification_emails, status, last_notified_at, created_at, updated_at"

func scanCertificate(row interface{ Scan(...any) error }) (Certificate, error) {
	var cert Certificate
	var emails string
	err := row.Scan(
		&cert.ID, &cert.Name, &cert.TaxID, (*string)(&cert.Type), &cert.ExpiresAt,
		&cert.PasswordCipher, &emails, (*string)(&cert.Status), &cert.LastNotifiedAt,
		&cert.CreatedAt, &cert.UpdatedAt,
	)
	if err != nil {
		return Certificate{}, err
	}
	if err := json.Unmarshal([]byte(emails), &cert.NotificationEmails); err != nil {
		return Certificate{}, fmt.Errorf("failed to decode notification emails for certificate %d: %w", cert.ID, err)
	}
	return cert, nil
}

// GetCertificate retrieves a single certificate by id.
func (s *SqliteStore) GetCertificate(id int64) (Certificate, error) {
	row := s.db.QueryRow("SELECT "+certColumns+" FROM certificates WHERE id = ?", id)
	cert, err := scanCertificate(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Certificate{}, ErrNotFound
		}
		return Certificate{}, fmt.Errorf("failed to get certificate %d: %w", id, err)
	}
	return cert, nil
}

// GetCertificates retrieves all certificates ordered by expiration date.
func (s *SqliteStore) GetCertificates() ([]Certificate, error) {
	rows, err := s.db.Query("SELECT " + certColumns + " FROM certificates ORDER BY expires_at ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query for certificates: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Error("failed to close certificates query", "err", closeErr)
		}
	}()

	var certs []Certificate
	for rows.Next() {
		cert, err := scanCertificate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan certificate row: %w", err)
		}
		certs = append(certs, cert)
	}
	return certs, rows.Err()
}

// FindByStatusAndDateRange retrieves certificates with the given workflow
// status whose expiration date falls within [from, to] inclusive. This is the
// scan window query; it filters on the stored status field only, never on a
// recomputed one.
func (s *SqliteStore) FindByStatusAndDateRange(status WorkflowStatus, from, to time.Time) ([]Certificate, error) {
	rows, err := s.db.Query(
		"SELECT "+certColumns+" FROM certificates WHERE status = ? AND expires_at >= ? AND expires_at <= ? ORDER BY expires_at ASC",
		string(status), from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query certificates by status and date range: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Error("failed to close certificates query", "err", closeErr)
		}
	}()

	var certs []Certificate
	for rows.Next() {
		cert, err := scanCertificate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan certificate row: %w", err)
		}
		certs = append(certs, cert)
	}
	return certs, rows.Err()
}

// UpdateCertificate replaces the mutable fields of an existing certificate.
func (s *SqliteStore) UpdateCertificate(cert Certificate) error {
	emails, err := json.Marshal(cert.NotificationEmails)
	if err != nil {
		return fmt.Errorf("failed to encode notification emails: %w", err)
	}

	res, err := s.db.Exec(
		`UPDATE certificates
		 SET name = ?, tax_id = ?, type = ?, expires_at = ?, password_cipher = ?, notification_emails = ?, status = ?, updated_at = ?
		 WHERE id = ?`,
		cert.Name, cert.TaxID, string(cert.Type), cert.ExpiresAt, cert.PasswordCipher, string(emails), string(cert.Status), time.Now(), cert.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update certificate %d: %w", cert.ID, err)
	}
	return requireRow(res, cert.ID)
}

// MarkCompleted transitions a certificate to the COMPLETED workflow status.
func (s *SqliteStore) MarkCompleted(id int64) error {
	res, err := s.db.Exec("UPDATE certificates SET status = ?, updated_at = ? WHERE id = ?", string(StatusCompleted), time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to mark certificate %d completed: %w", id, err)
	}
	return requireRow(res, id)
}

// MarkNotified records the time a notification was successfully delivered.
func (s *SqliteStore) MarkNotified(id int64, at time.Time) error {
	res, err := s.db.Exec("UPDATE certificates SET last_notified_at = ? WHERE id = ?", at, id)
	if err != nil {
		return fmt.Errorf("failed to mark certificate %d notified: %w", id, err)
	}
	return requireRow(res, id)
}

// DeleteCertificate removes a certificate.
func (s *SqliteStore) DeleteCertificate(id int64) error {
	res, err := s.db.Exec("DELETE FROM certificates WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete certificate %d: %w", id, err)
	}
	return requireRow(res, id)
}

func requireRow(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows for certificate %d: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetConfigValue retrieves a configuration value.
func (s *SqliteStore) GetConfigValue(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM configuration WHERE key = ?", key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("failed to get config value for key %s: %w", key, err)
	}
	return value, nil
}

// SetConfigValue sets a configuration value.
func (s *SqliteStore) SetConfigValue(key, value string) error {
	_, err := s.db.Exec("INSERT OR REPLACE INTO configuration (key, value) VALUES (?, ?)", key, value)
	if err != nil {
		return fmt.Errorf("failed to set config value for key %s: %w", key, err)
	}
	return nil
}

// GetCredential retrieves a credential value.
func (s *SqliteStore) GetCredential(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM credentials WHERE key = ?", key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("failed to get credential for key %s: %w", key, err)
	}
	return value, nil
}

// SetCredential sets a credential value.
func (s *SqliteStore) SetCredential(key, value string) error {
	_, err := s.db.Exec("INSERT OR REPLACE INTO credentials (key, value) VALUES (?, ?)", key, value)
	if err != nil {
		return fmt.Errorf("failed to set credential for key %s: %w", key, err)
	}
	return nil
}

// GetSchedulerStatus reports whether scheduled scans are active.
func (s *SqliteStore) GetSchedulerStatus() (bool, error) {
	var isActive bool
	err := s.db.QueryRow("SELECT is_active FROM scheduler_status WHERE id = 1").Scan(&isActive)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// If no status exists, default to active
			return true, nil
		}
		return false, fmt.Errorf("failed to get scheduler status: %w", err)
	}
	return isActive, nil
}

// SetSchedulerStatus pauses or resumes scheduled scans.
func (s *SqliteStore) SetSchedulerStatus(isActive bool) error {
	_, err := s.db.Exec("UPDATE scheduler_status SET is_active = ?, last_updated = ? WHERE id = 1", isActive, time.Now())
	if err != nil {
		return fmt.Errorf("failed to set scheduler status: %w", err)
	}
	return nil
}
