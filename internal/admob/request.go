package admob

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"cloud.google.com/go/civil"
	admobapi "google.golang.org/api/admob/v1"
)

// RequestConfig is the fixed part of every network report query.
type RequestConfig struct {
	Location      *time.Location
	Dimensions    []string
	Metrics       []string
	SortDimension string
	SortOrder     string
	CurrencyCode  string
}

var publisherIDPattern = regexp.MustCompile(`^pub-[0-9]+$`)

// ValidatePublisherID checks the "pub-<digits>" publisher id format.
func ValidatePublisherID(id string) error {
	if !publisherIDPattern.MatchString(id) {
		return fmt.Errorf("%w: %q", ErrInvalidPublisherID, id)
	}
	return nil
}

// ParsePublisherID reads a publisher id from a decoded message payload.
// Surrounding whitespace is ignored.
func ParsePublisherID(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: payload is not UTF-8", ErrInvalidPublisherID)
	}
	id := strings.TrimSpace(string(data))
	if err := ValidatePublisherID(id); err != nil {
		return "", err
	}
	return id, nil
}

// AccountName returns the API resource name for a publisher.
func AccountName(publisherID string) string {
	return "accounts/" + publisherID
}

// Yesterday returns the calendar day before now's local date in loc.
// The time of day is discarded before stepping back.
func Yesterday(now time.Time, loc *time.Location) civil.Date {
	return civil.DateOf(now.In(loc)).AddDays(-1)
}

// BuildRequest builds the network report query for the day before now.
func BuildRequest(cfg RequestConfig, now time.Time) *admobapi.GenerateNetworkReportRequest {
	day := Yesterday(now, cfg.Location)

	return &admobapi.GenerateNetworkReportRequest{
		ReportSpec: &admobapi.NetworkReportSpec{
			DateRange: &admobapi.DateRange{
				StartDate: apiDate(day),
				EndDate:   apiDate(day),
			},
			Dimensions: append([]string(nil), cfg.Dimensions...),
			Metrics:    append([]string(nil), cfg.Metrics...),
			SortConditions: []*admobapi.NetworkReportSpecSortCondition{
				{Dimension: cfg.SortDimension, Order: cfg.SortOrder},
			},
			LocalizationSettings: &admobapi.LocalizationSettings{
				CurrencyCode: cfg.CurrencyCode,
			},
		},
	}
}

// ReportDate returns the single day a request built by BuildRequest covers.
func ReportDate(req *admobapi.GenerateNetworkReportRequest) (civil.Date, error) {
	if req == nil || req.ReportSpec == nil || req.ReportSpec.DateRange == nil || req.ReportSpec.DateRange.StartDate == nil {
		return civil.Date{}, fmt.Errorf("ReportDate: request has no date range")
	}
	d := req.ReportSpec.DateRange.StartDate
	return civil.Date{Year: int(d.Year), Month: time.Month(d.Month), Day: int(d.Day)}, nil
}

func apiDate(d civil.Date) *admobapi.Date {
	return &admobapi.Date{
		Year:  int64(d.Year),
		Month: int64(d.Month),
		Day:   int64(d.Day),
	}
}
