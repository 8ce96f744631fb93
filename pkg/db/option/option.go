package option

import (
	"time"

	"github.com/milkledger/milkledger/pkg/db/pagination"
	"gorm.io/gorm"
)

// QueryOption mutates a gorm statement before execution.
type QueryOption interface {
	Apply(*gorm.DB) *gorm.DB
}

type queryOptionFunc func(*gorm.DB) *gorm.DB

func (f queryOptionFunc) Apply(stmt *gorm.DB) *gorm.DB { return f(stmt) }

// ApplyPagination translates a cursor token into a keyset predicate and limit.
// Listings order by (date desc, id desc), so the cursor carries both keys.
func ApplyPagination(page pagination.Pagination) QueryOption {
	return queryOptionFunc(func(stmt *gorm.DB) *gorm.DB {
		size := page.PageSize
		if size <= 0 {
			size = 50
		}
		if page.PageToken != "" {
			cursor, err := pagination.DecodeCursor(page.PageToken)
			if err == nil && cursor != nil && cursor.Date != "" && cursor.ID != "" {
				// Bind the date as time.Time so the driver renders it in the
				// same format it stores, keeping the comparison exact.
				if date, parseErr := time.Parse(time.RFC3339, cursor.Date); parseErr == nil {
					stmt = stmt.Where("(date < ?) OR (date = ? AND id < ?)", date, date, cursor.ID)
				}
			}
		}
		// Fetch one extra row so the caller can detect another page.
		return stmt.Limit(size + 1)
	})
}

func Limit(n int) QueryOption {
	return queryOptionFunc(func(stmt *gorm.DB) *gorm.DB {
		return stmt.Limit(n)
	})
}
