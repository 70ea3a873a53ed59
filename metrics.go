package ical

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collectors are always updated but only exported once the caller passes a
// registry to RegisterMetrics.
var (
	linesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ical_lines_total",
		Help: "Total number of logical content lines read.",
	})

	calendarsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ical_calendars_total",
		Help: "Total number of VCALENDAR objects parsed.",
	})

	findingsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ical_findings_total",
		Help: "Total number of findings reported by the parser and the validator.",
	}, []string{"source", "rule", "severity"})

	decodeErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ical_value_decode_errors_total",
		Help: "Total number of property values that failed to decode, by value type.",
	}, []string{"type"})
)

// RegisterMetrics registers the package collectors with reg.
func RegisterMetrics(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{linesTotal, calendarsTotal, findingsTotal, decodeErrors} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func countFinding(source string, f Finding) {
	findingsTotal.WithLabelValues(source, f.Rule, f.Severity.String()).Inc()
}
