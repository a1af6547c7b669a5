package web_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/ardanlabs/blockcraft/foundation/web"
)

func Test_Handle(t *testing.T) {
	var order []string
	mw := func(name string) web.Middleware {
		return func(handler web.Handler) web.Handler {
			return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
				order = append(order, name)
				return handler(ctx, w, r)
			}
		}
	}

	shutdown := make(chan os.Signal, 1)
	app := web.NewApp(shutdown, mw("app"))

	h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		v, err := web.GetValues(ctx)
		if err != nil {
			return err
		}
		if v.TraceID == "" {
			t.Errorf("Should get a trace id.")
		}

		var body struct {
			Name string `json:"name"`
		}
		if err := web.Decode(r, &body); err != nil {
			return err
		}

		resp := map[string]string{"account": web.Param(r, "account"), "name": body.Name}
		return web.Respond(ctx, w, resp, http.StatusOK)
	}
	app.Handle(http.MethodPost, "v1", "/echo/:account", h, mw("route"))

	r := httptest.NewRequest(http.MethodPost, "/v1/echo/alice", strings.NewReader(`{"name":"bill"}`))
	w := httptest.NewRecorder()
	app.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("Should get a 200, got %d: %s", w.Code, w.Body)
	}

	if got, exp := strings.TrimSpace(w.Body.String()), `{"account":"alice","name":"bill"}`; got != exp {
		t.Fatalf("Should get the response, got %s, exp %s", got, exp)
	}

	if len(order) != 2 || order[0] != "app" || order[1] != "route" {
		t.Fatalf("Should run the app middleware first: %v", order)
	}
}

func Test_Shutdown(t *testing.T) {
	shutdown := make(chan os.Signal, 1)
	app := web.NewApp(shutdown)

	h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		return web.NewShutdownError("integrity issue")
	}
	app.Handle(http.MethodGet, "", "/fail", h)

	app.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/fail", nil))

	select {
	case <-shutdown:
	default:
		t.Fatalf("Should signal a shutdown.")
	}

	if web.IsShutdown(errors.New("normal")) {
		t.Fatalf("Should not treat a normal error as a shutdown.")
	}
}
