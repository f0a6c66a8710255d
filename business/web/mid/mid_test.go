package mid_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/open-protocol/ledger/business/web/errs"
	"github.com/open-protocol/ledger/business/web/mid"
	"github.com/open-protocol/ledger/foundation/web"
	"go.uber.org/zap"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func TestErrors(t *testing.T) {
	type test struct {
		name    string
		handler web.Handler
		status  int
		message string
	}

	tt := []test{
		{
			name: "trusted",
			handler: func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
				return errs.NewTrusted(errors.New("nonce mismatch"), http.StatusBadRequest)
			},
			status:  http.StatusBadRequest,
			message: "nonce mismatch",
		},
		{
			name: "untrusted",
			handler: func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
				return errors.New("disk on fire")
			},
			status:  http.StatusInternalServerError,
			message: http.StatusText(http.StatusInternalServerError),
		},
		{
			name: "panic",
			handler: func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
				panic("boom")
			},
			status:  http.StatusInternalServerError,
			message: http.StatusText(http.StatusInternalServerError),
		},
	}

	log := zap.NewNop().Sugar()

	t.Log("Given the need to respond to handler errors uniformly.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen the handler returns a %s error.", testID, tst.name)
			{
				f := func(t *testing.T) {
					app := web.NewApp(make(chan os.Signal, 1), mid.Logger(log), mid.Errors(log), mid.Metrics(), mid.Cors("*"), mid.Panics())
					app.Handle(http.MethodGet, "v1", "/test", tst.handler)

					w := httptest.NewRecorder()
					app.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/test", nil))

					if w.Code != tst.status {
						t.Fatalf("\t%s\tTest %d:\tShould get status %d, got %d.", failed, testID, tst.status, w.Code)
					}
					t.Logf("\t%s\tTest %d:\tShould get status %d.", success, testID, tst.status)

					var resp errs.Response
					if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould decode the error response: %s", failed, testID, err)
					}
					if resp.Error != tst.message {
						t.Fatalf("\t%s\tTest %d:\tShould get message %q, got %q.", failed, testID, tst.message, resp.Error)
					}
					t.Logf("\t%s\tTest %d:\tShould get the error message.", success, testID)

					if w.Header().Get("Access-Control-Allow-Origin") != "*" {
						t.Fatalf("\t%s\tTest %d:\tShould set the CORS header.", failed, testID)
					}
				}

				t.Run(tst.name, f)
			}
		}
	}
}
