package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SignIns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ifpass_sign_ins_total",
		Help: "Successful password sign-ins.",
	})

	SignOuts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ifpass_sign_outs_total",
		Help: "Sign-out requests, whether or not the backend call succeeded.",
	})

	RouteDenied = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ifpass_route_denied_total",
		Help: "Guarded route hits redirected back to login.",
	}, []string{"route"})

	BackendErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ifpass_backend_errors_total",
		Help: "Failed calls against the hosted backend service.",
	}, []string{"operation"})

	SessionTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ifpass_session_transitions_total",
		Help: "Published session state transitions.",
	}, []string{"state"})
)
