package classify

import (
	"context"
	"fmt"

	"cert-verification/internal/model"
	pkgerrors "cert-verification/pkg/errors"
)

// RecordLookup queries the authoritative issued-credential store. The
// implementation must match on concrete values only; absent fields are
// handled here and never reach a query.
type RecordLookup interface {
	FindExact(ctx context.Context, name, score, identifier string) (bool, error)
	FindByIdentifier(ctx context.Context, identifier string) (bool, error)
}

// Classify decides authenticity in three tiers, exact match strictly
// before partial:
//
//	all three fields equal a record      -> valid
//	identifier alone equals a record     -> suspicious (name/score disagree)
//	identifier unknown or absent         -> invalid
//
// Deterministic given the record snapshot at call time.
func Classify(ctx context.Context, fields model.ExtractedFields, lookup RecordLookup) (model.CertStatus, error) {
	if fields.Name != nil && fields.Score != nil && fields.Identifier != nil {
		found, err := lookup.FindExact(ctx, *fields.Name, *fields.Score, *fields.Identifier)
		if err != nil {
			return "", fmt.Errorf("%w: %v", pkgerrors.ErrLookup, err)
		}
		if found {
			return model.CertStatusValid, nil
		}
	}

	// A nil identifier must not be treated as a wildcard; skipping the
	// query here is what prevents a false suspicious hit.
	if fields.Identifier != nil {
		found, err := lookup.FindByIdentifier(ctx, *fields.Identifier)
		if err != nil {
			return "", fmt.Errorf("%w: %v", pkgerrors.ErrLookup, err)
		}
		if found {
			return model.CertStatusSuspicious, nil
		}
	}

	return model.CertStatusInvalid, nil
}
