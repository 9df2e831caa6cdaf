package prices

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aristath/frontier/internal/database"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	require.NoError(t, database.ApplySchema(db, "history"))
	t.Cleanup(func() { db.Close() })
	return db
}

func day(s string) time.Time {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// writeCSV writes a classic Date,...,Close file with one row per day
// starting at start.
func writeCSV(t *testing.T, dir, name string, start time.Time, closes ...float64) {
	t.Helper()
	var b strings.Builder
	b.WriteString("Date,Open,High,Low,Close,Volume\n")
	for i, c := range closes {
		d := start.AddDate(0, 0, i).Format(dateLayout)
		fmt.Fprintf(&b, "%s,%g,%g,%g,%g,1000\n", d, c, c, c, c)
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(b.String()), 0644))
}

func series(start time.Time, closes ...float64) []DailyPrice {
	out := make([]DailyPrice, len(closes))
	for i, c := range closes {
		out[i] = DailyPrice{Date: start.AddDate(0, 0, i), Close: c}
	}
	return out
}
