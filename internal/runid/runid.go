// Package runid stamps job executions with a unique, reproducible identity.
package runid

import (
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"ContentIngestor/internal/domain"
)

const (
	// BaseDateLayout is the millisecond-precision layout of the baseDate parameter.
	BaseDateLayout = "2006-01-02T15:04:05.000"
	// DateLayout is accepted for caller-supplied base dates.
	DateLayout = "2006-01-02"
)

// ErrInvalidBaseDate is returned for a caller-supplied base date that does not parse.
var ErrInvalidBaseDate = errors.New("invalid base date")

// Generator derives run identities from the previous run counter.
type Generator struct {
	now      func() time.Time
	location *time.Location
	newID    func() string
}

// Option customizes a Generator.
type Option func(*Generator)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// WithLocation sets the timezone used to render base dates.
func WithLocation(loc *time.Location) Option {
	return func(g *Generator) {
		if loc != nil {
			g.location = loc
		}
	}
}

// NewGenerator builds a generator using wall-clock time in UTC by default.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{
		now:      time.Now,
		location: time.UTC,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Next increments previousRunID and stamps the base date. A "baseDate"
// parameter (yyyy-MM-dd or RFC 3339) selects the end of that day; without
// one the current instant is used. All other parameters are carried as-is.
func (g *Generator) Next(previousRunID int64, params map[string]string) (domain.JobRunIdentity, error) {
	if previousRunID < 0 {
		previousRunID = 0
	}

	baseDate, err := g.baseDate(params[domain.ParamBaseDate])
	if err != nil {
		return domain.JobRunIdentity{}, err
	}

	carried := make(map[string]string, len(params))
	for name, value := range params {
		name = strings.TrimSpace(name)
		if name == "" || name == domain.ParamBaseDate || name == domain.ParamRunID {
			continue
		}
		carried[name] = value
	}

	return domain.JobRunIdentity{
		RunID:       previousRunID + 1,
		BaseDate:    baseDate,
		Params:      carried,
		ExecutionID: g.newID(),
	}, nil
}

func (g *Generator) baseDate(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return g.now().In(g.location).Format(BaseDateLayout), nil
	}

	day, err := time.ParseInLocation(DateLayout, raw, g.location)
	if err != nil {
		ts, tsErr := time.Parse(time.RFC3339, raw)
		if tsErr != nil {
			return "", errors.Wrapf(ErrInvalidBaseDate, "%q", raw)
		}
		ts = ts.In(g.location)
		day = time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, g.location)
	}

	return EndOfDay(day).Format(BaseDateLayout), nil
}

// EndOfDay returns the last millisecond of t's calendar day.
func EndOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), t.Location())
}
