package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DigestRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "digest_runs_total",
		Help: "Digest runner invocations by outcome.",
	}, []string{"outcome"})

	EmailsSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "digest_emails_sent_total",
		Help: "Digest emails successfully handed to the mail transport.",
	})

	EmailsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "digest_emails_failed_total",
		Help: "Digest emails the mail transport rejected.",
	})

	EmailsSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "digest_emails_skipped_total",
		Help: "Digests skipped because no events matched the subscriber.",
	})

	CategoryFetchFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "event_category_fetch_failures_total",
		Help: "Per-category event file fetch or decode failures.",
	}, []string{"category"})

	Subscriptions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "subscription_requests_total",
		Help: "Subscription API requests by operation and result.",
	}, []string{"operation", "result"})
)
