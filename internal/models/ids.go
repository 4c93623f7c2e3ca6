package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	SaleIDPrefix   = "SALE"
	ReturnIDPrefix = "RET"
)

func NewSaleID(now time.Time) string {
	return newID(SaleIDPrefix, now)
}

func NewReturnID(now time.Time) string {
	return newID(ReturnIDPrefix, now)
}

func newID(prefix string, now time.Time) string {
	return fmt.Sprintf("%s-%s-%s", prefix, now.Format("20060102"), uuid.NewString()[:8])
}

// Timestamp normalizes t for storage: UTC, microsecond precision, no
// monotonic reading. Records built from it compare equal after a reload from
// either JSON or Postgres.
func Timestamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}
