package services

import "github.com/prometheus/client_golang/prometheus"

var (
	// conversationReplies counts orchestrator outcomes:
	// model, moderation_fallback, ai_error, retry_replayed.
	conversationReplies = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conversation_replies_total",
			Help: "Assistant reply outcomes of the conversation orchestrator.",
		},
		[]string{"outcome"},
	)

	// streakFallbacks counts streak reads served from the history cache.
	streakFallbacks = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "streak_cache_fallbacks_total",
		Help: "Streak computations served from cached history because storage was unreachable.",
	})

	// entriesResolved counts journal session resolutions by source:
	// cache, store, created.
	entriesResolved = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "journal_entries_resolved_total",
			Help: "Active journal entry resolutions by source.",
		},
		[]string{"source"},
	)
)

func init() {
	prometheus.MustRegister(conversationReplies, streakFallbacks, entriesResolved)
}
