package errs_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/open-protocol/ledger/business/web/errs"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func TestTrusted(t *testing.T) {
	base := errors.New("nonce mismatch")

	t.Log("Given the need to mark errors safe to show a caller.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen a trusted error is wrapped.", testID)
		{
			err := fmt.Errorf("submit: %w", errs.NewTrusted(base, http.StatusBadRequest))

			if !errs.IsTrusted(err) {
				t.Fatalf("\t%s\tTest %d:\tShould find the trusted error.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould find the trusted error.", success, testID)

			if te := errs.GetTrusted(err); te.Status != http.StatusBadRequest {
				t.Fatalf("\t%s\tTest %d:\tShould keep the status, got %d.", failed, testID, te.Status)
			}
			t.Logf("\t%s\tTest %d:\tShould keep the status.", success, testID)

			if !errors.Is(err, base) {
				t.Fatalf("\t%s\tTest %d:\tShould unwrap to the base error.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould unwrap to the base error.", success, testID)
		}

		testID = 1
		t.Logf("\tTest %d:\tWhen the error is not trusted.", testID)
		{
			if errs.GetTrusted(base) != nil {
				t.Fatalf("\t%s\tTest %d:\tShould not find a trusted error in a plain error.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould not find a trusted error in a plain error.", success, testID)
		}
	}
}
