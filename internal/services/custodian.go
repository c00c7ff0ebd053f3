package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/epeers/reconcile/internal/models"
)

// custodianCodes maps custodian reference prefixes to canonical custodian
// names. The table is fixed configuration: onboarding a custodian means
// adding a row here, nothing is learned from data.
var custodianCodes = map[string]string{
	"CUST_A": "CUSTODIAN_A",
	"CUST_B": "CUSTODIAN_B",
	"CUST_C": "CUSTODIAN_C",
	"CUST_D": "CUSTODIAN_D",
}

// ResolveCustodian maps a custodian reference such as "CUST_B_22345" to its
// canonical custodian name. The trailing underscore-delimited segment is an
// opaque tag and is discarded; the remaining prefix is looked up in the
// static table. Unknown prefixes return ok=false and record a warning;
// they are never silently defaulted.
func ResolveCustodian(ctx context.Context, ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", false
	}

	idx := strings.LastIndex(ref, "_")
	if idx <= 0 {
		AddWarning(ctx, models.Warning{
			Code:    models.WarnUnknownCustodianPrefix,
			Message: fmt.Sprintf("custodian reference %q has no recognizable prefix", ref),
		})
		return "", false
	}

	prefix := ref[:idx]
	name, ok := custodianCodes[prefix]
	if !ok {
		AddWarning(ctx, models.Warning{
			Code:    models.WarnUnknownCustodianPrefix,
			Message: fmt.Sprintf("unknown custodian prefix %q in reference %q", prefix, ref),
		})
		return "", false
	}
	return name, true
}
