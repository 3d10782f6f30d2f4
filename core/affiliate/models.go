package affiliate

import (
	"fmt"
	"strings"
	"time"

	"github.com/jaevor/go-nanoid"
	"github.com/shopspring/decimal"
)

const (
	codeAlphabet  = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	codeSuffixLen = 5
)

// Record is the commission ledger entry for one (referring user, course) pair.
// Counters only ever increase; UpdatedAt is refreshed on every mutation.
type Record struct {
	ID            string          `json:"id"`
	CourseID      string          `json:"course_id"`
	UserID        string          `json:"user_id"`
	Code          string          `json:"code"`
	Clicks        int64           `json:"clicks"`
	Conversions   int64           `json:"conversions"`
	TotalEarnings decimal.Decimal `json:"total_earnings"`
	CreatedAt     time.Time       `json:"created_at"` // UTC
	UpdatedAt     time.Time       `json:"updated_at"` // UTC
}

// IssuedCode pairs a referral code with the shareable course link embedding it.
type IssuedCode struct {
	Code string `json:"code"`
	Link string `json:"link"`
}

// CourseStats pairs course metadata with the owner's raw ledger entry.
type CourseStats struct {
	CourseID      string          `json:"course_id"`
	Title         string          `json:"title"`
	Thumbnail     string          `json:"thumbnail"`
	Code          string          `json:"code"`
	Link          string          `json:"link"`
	Clicks        int64           `json:"clicks"`
	Conversions   int64           `json:"conversions"`
	TotalEarnings decimal.Decimal `json:"total_earnings"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// AggregatedStats folds a user's ledger entries across all courses.
type AggregatedStats struct {
	TotalClicks      int64           `json:"total_clicks"`
	TotalConversions int64           `json:"total_conversions"`
	TotalEarnings    decimal.Decimal `json:"total_earnings"`
	// LastConversionDate is the most recent UpdatedAt among records with at
	// least one conversion; nil when the user has no conversions anywhere.
	LastConversionDate *time.Time `json:"last_conversion_date"`
}

// newCode derives a referral code from the course id plus a random suffix,
// upper-cased. The suffix alphabet excludes ambiguous characters (0/O, 1/I).
func newCode(courseID string) (string, error) {
	gen, err := nanoid.CustomASCII(codeAlphabet, codeSuffixLen)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%s", strings.ToUpper(courseID), gen()), nil
}

// codeCoursePart returns the course segment of a code: everything before the
// trailing random suffix. Empty if the code has no suffix separator.
func codeCoursePart(code string) string {
	idx := strings.LastIndex(code, "-")
	if idx <= 0 {
		return ""
	}
	return code[:idx]
}

// CourseLink builds the public referral link for a course code:
// <base>/course/<courseID>?ref=<code>
func CourseLink(baseURL, courseID, code string) string {
	return fmt.Sprintf("%s/course/%s?ref=%s", strings.TrimRight(baseURL, "/"), courseID, code)
}
