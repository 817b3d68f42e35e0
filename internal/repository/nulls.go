package repository

import (
	"database/sql"
	"time"

	"stock-movement-service/internal/models"
)

// nullableDate escanea una columna DATE que puede venir en NULL
type nullableDate struct {
	date  models.Date
	valid bool
}

func (n *nullableDate) Scan(src interface{}) error {
	if src == nil {
		n.valid = false
		return nil
	}
	n.valid = true
	return n.date.Scan(src)
}

func (n nullableDate) ptr() *models.Date {
	if !n.valid {
		return nil
	}
	d := n.date
	return &d
}

func nullString(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

func nullDate(d *models.Date) interface{} {
	if d == nil {
		return nil
	}
	return d.String()
}

func nullInt64(v *int64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func nullTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}

func stringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

func int64Ptr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	i := v.Int64
	return &i
}
