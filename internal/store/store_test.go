package store

import (
	"testing"
	"time"
)

func TestTimeRoundTrip(t *testing.T) {
	// Sub-second precision is dropped at the store boundary.
	orig := time.Date(2026, 8, 5, 14, 30, 12, 0, time.Local)
	got, err := ParseTime(FormatTime(orig))
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(orig) {
		t.Errorf("round trip = %v, want %v", got, orig)
	}
}

func TestFormatTimeLayout(t *testing.T) {
	ts := time.Date(2026, 1, 2, 3, 4, 5, 999, time.Local)
	if got := FormatTime(ts); got != "2026-01-02 03:04:05" {
		t.Errorf("FormatTime = %q", got)
	}
}

func TestNormalizePaging(t *testing.T) {
	tests := []struct {
		page, pageSize         int
		wantPage, wantPageSize int
	}{
		{0, 0, 1, 100},
		{-3, -1, 1, 100},
		{2, 50, 2, 50},
		{1, 1, 1, 1},
	}
	for _, tt := range tests {
		gotPage, gotSize := normalizePaging(tt.page, tt.pageSize)
		if gotPage != tt.wantPage || gotSize != tt.wantPageSize {
			t.Errorf("normalizePaging(%d, %d) = (%d, %d), want (%d, %d)",
				tt.page, tt.pageSize, gotPage, gotSize, tt.wantPage, tt.wantPageSize)
		}
	}
}

func TestUninitializedStoreOperations(t *testing.T) {
	s := New()
	if s.Initialized() {
		t.Error("fresh store reports initialized")
	}
	if err := s.Close(); err != nil {
		t.Errorf("Close on fresh store: %v", err)
	}
	if _, _, err := s.QueryPerformance("h", time.Now(), time.Now(), 1, 10); err != ErrNotInitialized {
		t.Errorf("QueryPerformance err = %v, want ErrNotInitialized", err)
	}
	if _, err := s.QueryLatestSource(); err != ErrNotInitialized {
		t.Errorf("QueryLatestSource err = %v, want ErrNotInitialized", err)
	}
}
