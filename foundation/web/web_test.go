package web_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/open-protocol/ledger/foundation/web"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

type account struct {
	PublicKey string `json:"pubkey" validate:"required,pubkey"`
}

func TestHandle(t *testing.T) {
	shutdown := make(chan os.Signal, 1)

	var order []string
	mw := func(name string) web.Middleware {
		return func(handler web.Handler) web.Handler {
			return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
				order = append(order, name)
				return handler(ctx, w, r)
			}
		}
	}

	app := web.NewApp(shutdown, mw("app"))
	app.Handle(http.MethodGet, "v1", "/echo/:name", func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		v, err := web.GetValues(ctx)
		if err != nil {
			return err
		}
		resp := map[string]string{"name": web.Param(r, "name"), "traceid": v.TraceID}
		return web.Respond(ctx, w, resp, http.StatusOK)
	}, mw("route"))

	app.Handle(http.MethodGet, "v1", "/fatal", func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		return web.NewShutdownError("integrity")
	})

	t.Log("Given the need to route requests through middleware.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen calling a route with a parameter.", testID)
		{
			w := httptest.NewRecorder()
			app.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/echo/kennedy", nil))

			if w.Code != http.StatusOK {
				t.Fatalf("\t%s\tTest %d:\tShould get a 200, got %d.", failed, testID, w.Code)
			}

			var resp map[string]string
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould decode the response: %s", failed, testID, err)
			}
			if resp["name"] != "kennedy" || resp["traceid"] == "" {
				t.Fatalf("\t%s\tTest %d:\tShould get the param and a trace id: %v", failed, testID, resp)
			}
			t.Logf("\t%s\tTest %d:\tShould get the param and a trace id.", success, testID)

			if strings.Join(order, ",") != "app,route" {
				t.Fatalf("\t%s\tTest %d:\tShould run app middleware first, got %v.", failed, testID, order)
			}
			t.Logf("\t%s\tTest %d:\tShould run app middleware first.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen a handler reports an integrity problem.", testID)
		{
			w := httptest.NewRecorder()
			app.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/fatal", nil))

			select {
			case <-shutdown:
				t.Logf("\t%s\tTest %d:\tShould signal a shutdown.", success, testID)
			default:
				t.Fatalf("\t%s\tTest %d:\tShould signal a shutdown.", failed, testID)
			}
		}
	}
}

func TestDecode(t *testing.T) {
	type test struct {
		name  string
		body  string
		valid bool
	}

	tt := []test{
		{name: "valid", body: `{"pubkey":"` + strings.Repeat("ab", 32) + `"}`, valid: true},
		{name: "short key", body: `{"pubkey":"abcd"}`},
		{name: "missing key", body: `{}`},
		{name: "unknown field", body: `{"pubkey":"` + strings.Repeat("ab", 32) + `","x":1}`},
	}

	t.Log("Given the need to decode and validate request bodies.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen handling a %s body.", testID, tst.name)
			{
				f := func(t *testing.T) {
					r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tst.body))

					var acct account
					err := web.Decode(r, &acct)

					if tst.valid {
						if err != nil {
							t.Fatalf("\t%s\tTest %d:\tShould decode the body: %s", failed, testID, err)
						}
						t.Logf("\t%s\tTest %d:\tShould decode the body.", success, testID)
						return
					}

					if err == nil {
						t.Fatalf("\t%s\tTest %d:\tShould reject the body.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould reject the body.", success, testID)
				}

				t.Run(tst.name, f)
			}
		}
	}
}

func TestFieldErrors(t *testing.T) {
	t.Log("Given the need to report which request fields are wrong.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen a field fails validation.", testID)
		{
			err := web.Check(&account{PublicKey: "zz"})

			fe := web.GetFieldErrors(err)
			if fe == nil {
				t.Fatalf("\t%s\tTest %d:\tShould get field errors, got %v.", failed, testID, err)
			}

			if _, exists := fe.Fields()["pubkey"]; !exists {
				t.Fatalf("\t%s\tTest %d:\tShould name the json field, got %v.", failed, testID, fe.Fields())
			}
			t.Logf("\t%s\tTest %d:\tShould name the json field.", success, testID)

			if !web.IsFieldErrors(errors.Join(errors.New("request"), err)) {
				t.Fatalf("\t%s\tTest %d:\tShould find field errors in a wrapped error.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould find field errors in a wrapped error.", success, testID)
		}
	}
}
