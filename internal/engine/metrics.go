package engine

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	PhaseTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "game_phase_transitions_total",
			Help: "Total phase transitions performed",
		},
		[]string{"from", "to"},
	)
	LockContention = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "game_advance_lock_contention_total",
			Help: "Advance attempts dropped because another holder had the lock",
		},
	)
	GracePeriodsStarted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "game_grace_periods_started_total",
			Help: "Grace periods started on player disconnect",
		},
	)
	GracePeriodsExpired = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "game_grace_periods_expired_total",
			Help: "Grace periods that expired into forced removal",
		},
	)
	ActionsRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "game_actions_rejected_total",
			Help: "Player actions rejected at validation",
		},
		[]string{"action", "reason"},
	)
)

func init() {
	prometheus.MustRegister(PhaseTransitions)
	prometheus.MustRegister(LockContention)
	prometheus.MustRegister(GracePeriodsStarted)
	prometheus.MustRegister(GracePeriodsExpired)
	prometheus.MustRegister(ActionsRejected)
}
