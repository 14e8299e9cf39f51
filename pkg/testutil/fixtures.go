package testutil

import (
	"time"

	"github.com/google/uuid"
)

// Fixed identifiers for deterministic testing.
var (
	TestTenantID  = uuid.MustParse("00000000-0000-0000-0000-000000000010").String()
	TestMemberID  = uuid.MustParse("00000000-0000-0000-0000-000000000020").String()
	TestProductID = uuid.MustParse("00000000-0000-0000-0000-000000000030").String()
	TestOfficerID = uuid.MustParse("00000000-0000-0000-0000-000000000001").String()
	TestCashierID = uuid.MustParse("00000000-0000-0000-0000-000000000002").String()
)

// Date returns midnight UTC of the given calendar day.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
