package quote

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
)

// Byte layout of the attestation evidence buffer. Offsets are fixed by the
// quote format; everything outside these windows is opaque to the verifier.
//
//	offset 0    2 bytes   quote version (little-endian)
//	offset 2    2 bytes   attestation key type (little-endian)
//	offset 80   32 bytes  enclave measurement (code-identity hash)
//	offset 304  64 bytes  report data (application-defined)
//
// MinQuoteSize covers the header plus the full report body; anything shorter
// cannot contain a complete report and is rejected before field extraction.
const (
	offsetVersion     = 0
	offsetKeyType     = 2
	offsetMeasurement = 80
	MeasurementSize   = 32
	offsetReportData  = 304
	ReportDataSize    = 64

	MinQuoteSize = 432
)

// mockReportMarker is the literal byte sequence a simulated enclave writes
// into its report data. Its presence means the quote is structurally valid
// but not hardware-rooted.
var mockReportMarker = []byte("SGX_MOCK_ENCLAVE")

// ErrQuoteDecode wraps every structural failure (bad base64, undersized
// buffer) into one kind so callers branch on it without caring which stage
// failed. The original cause stays in the chain for logging.
var ErrQuoteDecode = errors.New("quote decode failed")

// parsedQuote holds the fields extracted from a structurally valid buffer.
type parsedQuote struct {
	Version     uint16
	KeyType     uint16
	Measurement []byte
	ReportData  []byte
}

// decodeQuote base64-decodes and structurally validates the evidence buffer.
// It rejects undersized buffers before any field extraction; there is no
// partial parse.
func decodeQuote(quoteBase64 string) (*parsedQuote, error) {
	raw, err := base64.StdEncoding.DecodeString(quoteBase64)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base64: %v", ErrQuoteDecode, err)
	}
	if len(raw) < MinQuoteSize {
		return nil, fmt.Errorf("%w: buffer is %d bytes, minimum is %d", ErrQuoteDecode, len(raw), MinQuoteSize)
	}

	return &parsedQuote{
		Version:     binary.LittleEndian.Uint16(raw[offsetVersion : offsetVersion+2]),
		KeyType:     binary.LittleEndian.Uint16(raw[offsetKeyType : offsetKeyType+2]),
		Measurement: bytes.Clone(raw[offsetMeasurement : offsetMeasurement+MeasurementSize]),
		ReportData:  bytes.Clone(raw[offsetReportData : offsetReportData+ReportDataSize]),
	}, nil
}

// isMock reports whether the report data carries the simulated-enclave marker.
func (p *parsedQuote) isMock() bool {
	return bytes.Contains(p.ReportData, mockReportMarker)
}
