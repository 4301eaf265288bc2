package news

import (
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// DateRange is a closed interval of calendar days, both ends inclusive,
// rendered as YYYY-MM-DD. Ranges are normalized at construction; the
// repository and the remote client never do date arithmetic.
type DateRange struct {
	Start string
	End   string
}

// String renders the range as "start,end".
func (r DateRange) String() string {
	return r.Start + "," + r.End
}

// DayRange collapses a single selected day to start == end.
func DayRange(year, month, day int) DateRange {
	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	s := d.Format(dateLayout)
	return DateRange{Start: s, End: s}
}

// MonthRange expands a selected month to its first and last calendar day.
// The last day comes from day zero of the following month, which keeps
// February correct in leap years.
func MonthRange(year, month int) DateRange {
	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	last := time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC)
	return DateRange{Start: first.Format(dateLayout), End: last.Format(dateLayout)}
}

// YearRange expands a selected year to January 1 through December 31.
func YearRange(year int) DateRange {
	return DateRange{
		Start: time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC).Format(dateLayout),
		End:   time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC).Format(dateLayout),
	}
}

// PeriodRange normalizes a year/month/day selection where month and day may
// be zero, meaning "the whole year" and "the whole month" respectively.
func PeriodRange(year, month, day int) DateRange {
	switch {
	case month == 0:
		return YearRange(year)
	case day == 0:
		return MonthRange(year, month)
	default:
		return DayRange(year, month, day)
	}
}

// QueryKind tags the shape of a search query.
type QueryKind int

const (
	NoQuery QueryKind = iota
	KeywordOnly
	DateOnly
	Combined
)

// String returns the kind name for logs and messages.
func (k QueryKind) String() string {
	switch k {
	case KeywordOnly:
		return "keyword"
	case DateOnly:
		return "date"
	case Combined:
		return "combined"
	default:
		return "none"
	}
}

// SearchQuery describes one search issuance. The zero value is NoQuery.
// Category is an optional filter that applies to every kind.
type SearchQuery struct {
	Keyword  string
	Range    *DateRange
	Category string
}

// Kind derives the query shape from which fields are set.
func (q SearchQuery) Kind() QueryKind {
	switch {
	case q.Keyword != "" && q.Range != nil:
		return Combined
	case q.Keyword != "":
		return KeywordOnly
	case q.Range != nil:
		return DateOnly
	default:
		return NoQuery
	}
}

// Equal reports whether two queries would issue the same remote call.
// Used to correlate an in-flight search with the current query so that a
// superseded response can be discarded.
func (q SearchQuery) Equal(other SearchQuery) bool {
	if q.Keyword != other.Keyword || q.Category != other.Category {
		return false
	}
	if (q.Range == nil) != (other.Range == nil) {
		return false
	}
	return q.Range == nil || *q.Range == *other.Range
}

// String renders the query compactly for logs.
func (q SearchQuery) String() string {
	s := q.Kind().String()
	if q.Keyword != "" {
		s += fmt.Sprintf(" %q", q.Keyword)
	}
	if q.Range != nil {
		s += " " + q.Range.String()
	}
	if q.Category != "" {
		s += " category=" + q.Category
	}
	return s
}
