package db

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/marcus/possync/internal/models"
)

const employeeColumns = `id, tenant_id, full_name, email, role, status, start_date, end_date, created_at, updated_at`

// CreateEmployee creates a new employee, generating its ID when empty.
func (db *DB) CreateEmployee(e *models.Employee) error {
	return db.withWriteLock(func() error {
		if e.ID == "" {
			id, err := generateID(employeeIDPrefix)
			if err != nil {
				return err
			}
			e.ID = id
		}
		if e.Status == "" {
			e.Status = models.EmployeeActive
		}
		now := time.Now()
		e.CreatedAt = now
		e.UpdatedAt = now

		_, err := db.conn.Exec(`
			INSERT INTO employees (id, tenant_id, full_name, email, role, status, start_date, end_date, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, e.ID, e.TenantID, e.FullName, e.Email, e.Role, e.Status, e.StartDate, e.EndDate, e.CreatedAt, e.UpdatedAt)
		return err
	})
}

// UpdateEmployee updates an employee.
func (db *DB) UpdateEmployee(e *models.Employee) error {
	return db.withWriteLock(func() error {
		e.UpdatedAt = time.Now()
		_, err := db.conn.Exec(`
			UPDATE employees SET full_name = ?, email = ?, role = ?, status = ?, start_date = ?, end_date = ?, updated_at = ?
			WHERE id = ? AND tenant_id = ?
		`, e.FullName, e.Email, e.Role, e.Status, e.StartDate, e.EndDate, e.UpdatedAt, e.ID, e.TenantID)
		return err
	})
}

// GetEmployee returns an employee by ID.
func (db *DB) GetEmployee(tenantID, id string) (*models.Employee, error) {
	var e models.Employee
	err := db.conn.QueryRow(`
		SELECT `+employeeColumns+` FROM employees WHERE tenant_id = ? AND id = ?
	`, tenantID, id).Scan(
		&e.ID, &e.TenantID, &e.FullName, &e.Email, &e.Role, &e.Status,
		&e.StartDate, &e.EndDate, &e.CreatedAt, &e.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("employee not found: %s", id)
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// ListEmployees returns a tenant's employees. When activeOnly is set, only
// employees with status active are returned. ids, when non-empty, restricts
// the result.
func (db *DB) ListEmployees(tenantID string, activeOnly bool, ids []string) ([]models.Employee, error) {
	query := `SELECT ` + employeeColumns + ` FROM employees WHERE tenant_id = ?`
	args := []interface{}{tenantID}

	if activeOnly {
		query += ` AND status = ?`
		args = append(args, models.EmployeeActive)
	}
	if len(ids) > 0 {
		placeholders := make([]string, len(ids))
		for i, id := range ids {
			placeholders[i] = "?"
			args = append(args, id)
		}
		query += fmt.Sprintf(" AND id IN (%s)", strings.Join(placeholders, ","))
	}
	query += " ORDER BY full_name"

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var employees []models.Employee
	for rows.Next() {
		var e models.Employee
		if err := rows.Scan(
			&e.ID, &e.TenantID, &e.FullName, &e.Email, &e.Role, &e.Status,
			&e.StartDate, &e.EndDate, &e.CreatedAt, &e.UpdatedAt,
		); err != nil {
			return nil, err
		}
		employees = append(employees, e)
	}
	return employees, rows.Err()
}
