package constants

import (
	"regexp"
	"testing"
	"time"
)

func TestTimeFormat(t *testing.T) {
	// Check that the watermark regexp matches a formatted time.
	re := regexp.MustCompile(TimeFormatWatermarkRegex)
	ts := time.Date(2024, 11, 3, 14, 20, 49, 962000000, time.UTC).Format(TimeFormatWatermark)
	if !re.MatchString(ts) {
		t.Fatal("Mismatch between TimeFormatWatermark and regexp in constant TimeFormatWatermarkRegex: ", ts)
	}
	if ts != "2024-11-03T14:20:49.962000" {
		t.Fatal("Unexpected watermark format: ", ts)
	}
}

func TestLoadTablesEndWithFact(t *testing.T) {
	if LoadTables[len(LoadTables)-1] != TableFactSalesOrder {
		t.Fatal("expected the fact table to be loaded last")
	}
}
