package admob

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
	_ "time/tzdata"

	"cloud.google.com/go/civil"
	"github.com/google/go-cmp/cmp"
	admobapi "google.golang.org/api/admob/v1"
)

func losAngeles(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/Los_Angeles")
	if err != nil {
		t.Fatalf("loading timezone: %v", err)
	}
	return loc
}

func testRequestConfig(t *testing.T) RequestConfig {
	return RequestConfig{
		Location:      losAngeles(t),
		Dimensions:    []string{"DATE", "APP", "COUNTRY"},
		Metrics:       []string{"ESTIMATED_EARNINGS", "CLICKS"},
		SortDimension: "DATE",
		SortOrder:     "DESCENDING",
		CurrencyCode:  "PKR",
	}
}

func TestYesterday(t *testing.T) {
	loc := losAngeles(t)

	tests := []struct {
		name string
		now  time.Time
		want civil.Date
	}{
		{
			name: "UTC morning is still the previous day in Los Angeles",
			now:  time.Date(2024, 3, 15, 5, 0, 0, 0, time.UTC),
			want: civil.Date{Year: 2024, Month: 3, Day: 13},
		},
		{
			name: "UTC afternoon",
			now:  time.Date(2024, 3, 15, 20, 0, 0, 0, time.UTC),
			want: civil.Date{Year: 2024, Month: 3, Day: 14},
		},
		{
			name: "first of the year rolls back into December",
			now:  time.Date(2024, 1, 1, 12, 0, 0, 0, loc),
			want: civil.Date{Year: 2023, Month: 12, Day: 31},
		},
		{
			name: "leap day",
			now:  time.Date(2024, 3, 1, 0, 30, 0, 0, loc),
			want: civil.Date{Year: 2024, Month: 2, Day: 29},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Yesterday(tt.now, loc); got != tt.want {
				t.Errorf("Yesterday() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBuildRequest(t *testing.T) {
	cfg := testRequestConfig(t)
	now := time.Date(2024, 6, 10, 18, 0, 0, 0, time.UTC)

	got := BuildRequest(cfg, now)

	want := &admobapi.GenerateNetworkReportRequest{
		ReportSpec: &admobapi.NetworkReportSpec{
			DateRange: &admobapi.DateRange{
				StartDate: &admobapi.Date{Year: 2024, Month: 6, Day: 9},
				EndDate:   &admobapi.Date{Year: 2024, Month: 6, Day: 9},
			},
			Dimensions: []string{"DATE", "APP", "COUNTRY"},
			Metrics:    []string{"ESTIMATED_EARNINGS", "CLICKS"},
			SortConditions: []*admobapi.NetworkReportSpecSortCondition{
				{Dimension: "DATE", Order: "DESCENDING"},
			},
			LocalizationSettings: &admobapi.LocalizationSettings{CurrencyCode: "PKR"},
		},
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("BuildRequest mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildRequest_DoesNotAliasConfig(t *testing.T) {
	cfg := testRequestConfig(t)
	req := BuildRequest(cfg, time.Now())

	cfg.Dimensions[0] = "AD_UNIT"
	if req.ReportSpec.Dimensions[0] != "DATE" {
		t.Error("request dimensions changed with the config slice")
	}
}

func TestBuildRequest_DeterministicWithinDay(t *testing.T) {
	cfg := testRequestConfig(t)
	loc := cfg.Location

	morning := time.Date(2024, 6, 10, 0, 5, 0, 0, loc)
	night := time.Date(2024, 6, 10, 23, 55, 0, 0, loc)

	a, err := json.Marshal(BuildRequest(cfg, morning))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	b, err := json.Marshal(BuildRequest(cfg, night))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	if string(a) != string(b) {
		t.Errorf("requests differ within the same day:\n%s\n%s", a, b)
	}
}

func TestReportDate(t *testing.T) {
	cfg := testRequestConfig(t)
	req := BuildRequest(cfg, time.Date(2024, 6, 10, 18, 0, 0, 0, time.UTC))

	got, err := ReportDate(req)
	if err != nil {
		t.Fatalf("ReportDate failed: %v", err)
	}
	if want := (civil.Date{Year: 2024, Month: 6, Day: 9}); got != want {
		t.Errorf("ReportDate() = %v, want %v", got, want)
	}

	if _, err := ReportDate(&admobapi.GenerateNetworkReportRequest{}); err == nil {
		t.Error("expected error for request without date range")
	}
}

func TestValidatePublisherID(t *testing.T) {
	tests := []struct {
		id      string
		wantErr bool
	}{
		{"pub-4194291010476912", false},
		{"pub-1", false},
		{"pub-", true},
		{"pub-12a4", true},
		{"ca-app-pub-123", true},
		{" pub-123", true},
		{"", true},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			err := ValidatePublisherID(tt.id)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidatePublisherID(%q) = %v, wantErr %v", tt.id, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidPublisherID) {
				t.Errorf("error %v is not ErrInvalidPublisherID", err)
			}
		})
	}
}

func TestParsePublisherID(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		want    string
		wantErr bool
	}{
		{"plain", []byte("pub-123"), "pub-123", false},
		{"trailing newline", []byte("pub-123\n"), "pub-123", false},
		{"empty", nil, "", true},
		{"json", []byte(`{"publisher_id":"pub-1"}`), "", true},
		{"not utf-8", []byte{0xff, 0xfe}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePublisherID(tt.data)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParsePublisherID() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidPublisherID) {
				t.Errorf("error %v is not ErrInvalidPublisherID", err)
			}
			if got != tt.want {
				t.Errorf("ParsePublisherID() = %q, want %q", got, tt.want)
			}
		})
	}
}
