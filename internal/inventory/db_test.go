package inventory

import (
	"testing"

	"gorm.io/gorm"

	"github.com/velora-co/velora-backend/internal/testdb"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	return testdb.Open(t)
}
