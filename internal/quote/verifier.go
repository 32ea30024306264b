package quote

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"
)

const (
	// DefaultCollateralURL is the public certification service used to fetch
	// quote collateral when no override is configured.
	DefaultCollateralURL = "https://api.trustedservices.intel.com/sgx/certification/v4"

	issuerHardware = "Intel SGX/TDX (DCAP)"
	issuerMock     = "Mock TEE (simulated)"
)

// VerificationDetails breaks the overall verdict into its parts so callers
// can tell a measurement mismatch from a simulated enclave.
type VerificationDetails struct {
	MeasurementValid bool `json:"measurementValid"`
	IsMockQuote      bool `json:"isMockQuote"`
}

// VerificationResult is the outcome of verifying one quote. Quotes are
// transient inputs; only the result is kept.
type VerificationResult struct {
	Valid       bool                `json:"valid"`
	Measurement []byte              `json:"measurement"`
	Issuer      string              `json:"issuer"`
	Timestamp   time.Time           `json:"timestamp"`
	Details     VerificationDetails `json:"details"`
}

// Verifier validates TEE attestation quotes. Structural and measurement
// checks are pure; the optional online collateral check is the only side
// effect and can be disabled for offline or test use. A Verifier is safe for
// concurrent use.
type Verifier struct {
	mu            sync.RWMutex
	collateralURL string
	skipOnline    bool
	collateral    collateralChecker
	logger        *zap.Logger
}

// Option configures a Verifier at construction.
type Option func(*Verifier)

// WithCollateralURL overrides the certification service endpoint.
func WithCollateralURL(url string) Option {
	return func(v *Verifier) { v.collateralURL = url }
}

// WithSkipOnlineVerification disables the collateral check entirely.
// Structural and measurement checks are unaffected.
func WithSkipOnlineVerification(skip bool) Option {
	return func(v *Verifier) { v.skipOnline = skip }
}

// WithLogger attaches a logger; the default is zap's global.
func WithLogger(logger *zap.Logger) Option {
	return func(v *Verifier) { v.logger = logger }
}

func withCollateralChecker(c collateralChecker) Option {
	return func(v *Verifier) { v.collateral = c }
}

// New constructs an independent Verifier. It never aliases the process-wide
// default instance.
func New(opts ...Option) *Verifier {
	v := &Verifier{
		collateralURL: DefaultCollateralURL,
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.logger == nil {
		v.logger = zap.L().Named("quote")
	}
	if v.collateral == nil {
		v.collateral = newHTTPCollateralChecker()
	}
	return v
}

var (
	defaultVerifier *Verifier
	defaultOnce     sync.Once
)

// Default returns the lazily constructed process-wide verifier. It exists as
// an outermost-boundary convenience; core logic should receive an explicit
// instance instead.
func Default() *Verifier {
	defaultOnce.Do(func() {
		defaultVerifier = New()
	})
	return defaultVerifier
}

// SetCollateralURL changes the certification service endpoint after
// construction.
func (v *Verifier) SetCollateralURL(url string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.collateralURL = url
}

// CollateralURL returns the configured certification service endpoint.
func (v *Verifier) CollateralURL() string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.collateralURL
}

// VerifyQuote decodes and verifies a base64 attestation quote. A nil
// expectedMeasurement skips the measurement comparison. Structural failures
// return ErrQuoteDecode; a failed online collateral check makes the result
// invalid but is never an error, since connectivity is not evidence of a bad
// quote.
func (v *Verifier) VerifyQuote(ctx context.Context, quoteBase64 string, expectedMeasurement []byte) (*VerificationResult, error) {
	parsed, err := decodeQuote(quoteBase64)
	if err != nil {
		return nil, err
	}

	result := &VerificationResult{
		Measurement: parsed.Measurement,
		Timestamp:   time.Now().UTC(),
		Details: VerificationDetails{
			MeasurementValid: expectedMeasurement == nil || bytes.Equal(parsed.Measurement, expectedMeasurement),
			IsMockQuote:      parsed.isMock(),
		},
	}
	if result.Details.IsMockQuote {
		result.Issuer = issuerMock
	} else {
		result.Issuer = issuerHardware
	}

	collateralOK := true
	if !v.skipOnlineFlag() {
		if err := v.collateral.Check(ctx, v.CollateralURL()); err != nil {
			collateralOK = false
			v.logger.Warn("collateral verification failed",
				zap.String("endpoint", v.CollateralURL()),
				zap.Error(err))
		}
	}

	result.Valid = result.Details.MeasurementValid && collateralOK
	return result, nil
}

// VerifyBatch verifies every quote against the same expected measurement,
// preserving input order 1:1. An empty input yields an empty output. A quote
// that fails to decode becomes an invalid result rather than aborting the
// rest of the batch.
func (v *Verifier) VerifyBatch(ctx context.Context, quotes []string, expectedMeasurement []byte) []*VerificationResult {
	return lo.Map(quotes, func(q string, i int) *VerificationResult {
		result, err := v.VerifyQuote(ctx, q, expectedMeasurement)
		if err != nil {
			v.logger.Warn("batch quote rejected", zap.Int("index", i), zap.Error(err))
			return &VerificationResult{
				Valid:     false,
				Issuer:    "",
				Timestamp: time.Now().UTC(),
			}
		}
		return result
	})
}

func (v *Verifier) skipOnlineFlag() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.skipOnline
}
