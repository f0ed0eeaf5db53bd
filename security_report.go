package authcore

import "time"

// SecurityReport summarizes the engine's security-relevant configuration
// for startup logging and operational review. It never contains key
// material.
type SecurityReport struct {
	SigningAlgorithm      string
	AccessTTL             time.Duration
	RefreshTTL            time.Duration
	Argon2                PasswordParamsReport
	PasswordMinLength     int
	SessionCap            int
	RefreshRotation       bool
	RefreshReuseDetection bool
	AuditEnabled          bool
	MetricsEnabled        bool
}

// PasswordParamsReport mirrors the effective argon2id cost parameters.
type PasswordParamsReport struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// SecurityReport returns the current effective security posture.
func (e *Engine) SecurityReport() SecurityReport {
	if e == nil || e.hasher == nil {
		return SecurityReport{}
	}

	params := e.hasher.Params()
	accessTTL, refreshTTL := e.codec.TTLs()

	return SecurityReport{
		SigningAlgorithm: e.config.Token.SigningMethod,
		AccessTTL:        accessTTL,
		RefreshTTL:       refreshTTL,
		Argon2: PasswordParamsReport{
			Memory:      params.Memory,
			Time:        params.Time,
			Parallelism: params.Parallelism,
			SaltLength:  params.SaltLength,
			KeyLength:   params.KeyLength,
		},
		PasswordMinLength:     e.config.Password.MinLength,
		SessionCap:            e.config.Session.MaxLivePerAccount,
		RefreshRotation:       true,
		RefreshReuseDetection: true,
		AuditEnabled:          e.config.Audit.Enabled,
		MetricsEnabled:        e.metrics.Enabled(),
	}
}
