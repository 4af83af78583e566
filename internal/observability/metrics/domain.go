package metrics

import "time"

// Deployment records the outcome of a deployment run.
func Deployment(contract, status string) {
	if !enabled {
		return
	}
	deploymentTotal.WithLabelValues(contract, status).Inc()
}

// Step records how long a deployment step took.
func Step(step string, d time.Duration) {
	if !enabled {
		return
	}
	stepDuration.WithLabelValues(step).Observe(d.Seconds())
}

// Verification records a verification result.
func Verification(result string) {
	if !enabled {
		return
	}
	verificationTotal.WithLabelValues(result).Inc()
}

// VerificationPoll records one status check and the status it reported.
func VerificationPoll(status string) {
	if !enabled {
		return
	}
	verificationPolls.WithLabelValues(status).Inc()
}
