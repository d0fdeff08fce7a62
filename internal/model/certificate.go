package model

type CertStatus string

const (
	CertStatusValid      CertStatus = "valid"
	CertStatusSuspicious CertStatus = "suspicious"
	CertStatusInvalid    CertStatus = "invalid"
)

// ExtractedFields holds the identity fields recognized from a certificate.
// A nil pointer means the field's label pattern did not match; empty string
// is never used for absence. RawText is kept verbatim for auditing.
type ExtractedFields struct {
	Name       *string `json:"name"`
	Score      *string `json:"marks"`
	Identifier *string `json:"certificate_id"`
	RawText    string  `json:"raw_text"`
}

type ClassificationResult struct {
	Status CertStatus      `json:"status"`
	Fields ExtractedFields `json:"fields"`
}
