package config

import "time"

// SignupBurst bounds how fast a single caller can fire registration
// writes.  The Redis bucket holds Burst tokens and refills one token
// per Interval; TTL is how long an idle bucket survives before Redis
// drops it.
type SignupBurst struct {
	Enabled  bool
	Burst    int
	Interval time.Duration
	TTL      time.Duration
}

// LoadSignupBurst reads the throttle settings.  The defaults allow a
// burst of 30 writes refilling one per second, enough headroom for
// batch signups while still stopping scripted hammering when a popular
// signup window opens.
func LoadSignupBurst() SignupBurst {
	cfg := SignupBurst{
		Enabled:  envBool("SIGNUP_BURST_ENABLED", true),
		Burst:    envInt("SIGNUP_BURST", 30),
		Interval: envDur("SIGNUP_BURST_INTERVAL", time.Second),
		TTL:      envDur("SIGNUP_BURST_TTL", 10*time.Minute),
	}
	if cfg.Burst < 1 {
		cfg.Burst = 1
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	// An idle bucket must outlive at least a few refills, otherwise a
	// slow caller gets a fresh bucket on every request.
	if min := 5 * cfg.Interval; cfg.TTL < min {
		cfg.TTL = min
	}
	return cfg
}
