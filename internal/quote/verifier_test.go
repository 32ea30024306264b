package quote

import (
	"bytes"
	"context"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"
)

type stubCollateral struct {
	err   error
	calls int
}

func (s *stubCollateral) Check(ctx context.Context, endpoint string) error {
	s.calls++
	return s.err
}

// buildQuote assembles a 512-byte evidence buffer with the given measurement
// and report data placed at their fixed offsets.
func buildQuote(t *testing.T, measurement, reportData []byte) string {
	t.Helper()
	raw := make([]byte, 512)
	raw[offsetVersion] = 3 // version 3, little-endian
	raw[offsetKeyType] = 2
	if measurement != nil {
		require.Len(t, measurement, MeasurementSize)
		copy(raw[offsetMeasurement:], measurement)
	}
	if reportData != nil {
		require.LessOrEqual(t, len(reportData), ReportDataSize)
		copy(raw[offsetReportData:], reportData)
	}
	return base64.StdEncoding.EncodeToString(raw)
}

func testMeasurement() []byte {
	return bytes.Repeat([]byte{0xAB}, MeasurementSize)
}

func newOfflineVerifier(t *testing.T) *Verifier {
	t.Helper()
	return New(WithSkipOnlineVerification(true))
}

func TestVerifyQuote_ExtractsMeasurement(t *testing.T) {
	v := newOfflineVerifier(t)
	m := testMeasurement()

	result, err := v.VerifyQuote(context.Background(), buildQuote(t, m, nil), nil)
	require.NoError(t, err)
	require.True(t, result.Valid)
	require.Equal(t, m, result.Measurement)
	require.True(t, result.Details.MeasurementValid)
	require.False(t, result.Details.IsMockQuote)
	require.Equal(t, issuerHardware, result.Issuer)
}

func TestVerifyQuote_ExpectedMeasurementMatch(t *testing.T) {
	v := newOfflineVerifier(t)
	m := testMeasurement()

	result, err := v.VerifyQuote(context.Background(), buildQuote(t, m, nil), m)
	require.NoError(t, err)
	require.True(t, result.Valid)
	require.True(t, result.Details.MeasurementValid)
}

func TestVerifyQuote_MeasurementMismatch(t *testing.T) {
	v := newOfflineVerifier(t)
	expected := bytes.Repeat([]byte{0xFF}, MeasurementSize)

	result, err := v.VerifyQuote(context.Background(), buildQuote(t, testMeasurement(), nil), expected)
	require.NoError(t, err)
	require.False(t, result.Valid)
	require.False(t, result.Details.MeasurementValid)
}

func TestVerifyQuote_MockMarkerDetected(t *testing.T) {
	v := newOfflineVerifier(t)

	result, err := v.VerifyQuote(context.Background(), buildQuote(t, testMeasurement(), mockReportMarker), nil)
	require.NoError(t, err)
	require.True(t, result.Details.IsMockQuote)
	require.Equal(t, issuerMock, result.Issuer)
}

func TestVerifyQuote_RejectsBadBase64(t *testing.T) {
	v := newOfflineVerifier(t)

	_, err := v.VerifyQuote(context.Background(), "not-base64!!!", nil)
	require.ErrorIs(t, err, ErrQuoteDecode)
}

func TestVerifyQuote_RejectsUndersizedBuffer(t *testing.T) {
	v := newOfflineVerifier(t)
	small := base64.StdEncoding.EncodeToString(make([]byte, MinQuoteSize-1))

	_, err := v.VerifyQuote(context.Background(), small, nil)
	require.ErrorIs(t, err, ErrQuoteDecode)
}

func TestVerifyQuote_CollateralFailureInvalidatesWithoutError(t *testing.T) {
	stub := &stubCollateral{err: context.DeadlineExceeded}
	v := New(withCollateralChecker(stub))

	result, err := v.VerifyQuote(context.Background(), buildQuote(t, testMeasurement(), nil), nil)
	require.NoError(t, err)
	require.False(t, result.Valid)
	require.True(t, result.Details.MeasurementValid)
	require.Equal(t, 1, stub.calls)
}

func TestVerifyQuote_SkipOnlineBypassesCollateral(t *testing.T) {
	stub := &stubCollateral{err: context.DeadlineExceeded}
	v := New(withCollateralChecker(stub), WithSkipOnlineVerification(true))

	result, err := v.VerifyQuote(context.Background(), buildQuote(t, testMeasurement(), nil), nil)
	require.NoError(t, err)
	require.True(t, result.Valid)
	require.Zero(t, stub.calls)
}

func TestVerifyBatch_Empty(t *testing.T) {
	v := newOfflineVerifier(t)
	results := v.VerifyBatch(context.Background(), nil, nil)
	require.Empty(t, results)
}

func TestVerifyBatch_PreservesOrder(t *testing.T) {
	v := newOfflineVerifier(t)
	m1 := bytes.Repeat([]byte{0x01}, MeasurementSize)
	m2 := bytes.Repeat([]byte{0x02}, MeasurementSize)
	m3 := bytes.Repeat([]byte{0x03}, MeasurementSize)

	results := v.VerifyBatch(context.Background(), []string{
		buildQuote(t, m1, nil),
		buildQuote(t, m2, nil),
		buildQuote(t, m3, nil),
	}, nil)
	require.Len(t, results, 3)
	require.Equal(t, m1, results[0].Measurement)
	require.Equal(t, m2, results[1].Measurement)
	require.Equal(t, m3, results[2].Measurement)
}

func TestVerifyBatch_BadQuoteBecomesInvalidResult(t *testing.T) {
	v := newOfflineVerifier(t)

	results := v.VerifyBatch(context.Background(), []string{
		buildQuote(t, testMeasurement(), nil),
		"garbage",
	}, nil)
	require.Len(t, results, 2)
	require.True(t, results[0].Valid)
	require.False(t, results[1].Valid)
}

func TestDefault_ReturnsSameInstance(t *testing.T) {
	require.Same(t, Default(), Default())
	require.NotSame(t, Default(), New())
}

func TestSetCollateralURL(t *testing.T) {
	v := New()
	require.Equal(t, DefaultCollateralURL, v.CollateralURL())
	v.SetCollateralURL("https://pccs.internal:8081/sgx/certification/v4")
	require.Equal(t, "https://pccs.internal:8081/sgx/certification/v4", v.CollateralURL())
}
