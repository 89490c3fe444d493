/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package controller

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/hyperledger/aries-framework-go/pkg/common/log"
	"github.com/pkg/errors"
	"github.com/rs/cors"

	"github.com/scoir/attestor/pkg/framework"
)

const (
	APIKeyHeaderName = "X-API-Key"
)

var logger = log.New("attestor/controller")

type HandlerProvider interface {
	Handler() http.Handler
}

// Runner serves an API handler behind CORS and, when the endpoint carries a token, API key
// authentication.
type Runner struct {
	hp       HandlerProvider
	addr     string
	apiToken string
	srv      *http.Server
}

type provider interface {
	Endpoint(s string) (*framework.Endpoint, error)
}

func New(ctx provider, hp HandlerProvider) (*Runner, error) {
	ep, err := ctx.Endpoint("api")
	if err != nil {
		return nil, errors.Wrap(err, "unable to create controller")
	}

	r := &Runner{
		hp:       hp,
		addr:     ep.Address(),
		apiToken: ep.Token,
	}

	r.srv = &http.Server{Addr: r.addr, Handler: r.Handler()}
	return r, nil
}

// Handler is the full middleware chain around the API.
func (r *Runner) Handler() http.Handler {
	h := r.hp.Handler()
	if r.apiToken != "" {
		h = r.basicTokenAuth(h)
	}

	return CorsHandler()(h)
}

// Launch blocks until the server is shut down.
func (r *Runner) Launch() error {
	logger.Infof("API listening on %s", r.addr)
	err := r.srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}

	return err
}

func (r *Runner) Shutdown(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	return r.srv.Shutdown(ctx)
}

func (r *Runner) basicTokenAuth(h http.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if req.Method == http.MethodOptions {
			h.ServeHTTP(w, req)
			return
		}

		authHeader := req.Header.Get(APIKeyHeaderName)
		if authHeader == "" {
			http.Error(w, "Not authorized", http.StatusUnauthorized)
			return
		}

		givenToken := sha256.Sum256([]byte(authHeader))
		requiredToken := sha256.Sum256([]byte(r.apiToken))

		if subtle.ConstantTimeCompare(givenToken[:], requiredToken[:]) != 1 {
			http.Error(w, "Not authorized", http.StatusUnauthorized)
			return
		}

		h.ServeHTTP(w, req)
	}
}

func CorsHandler() func(h http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "PUT", "PATCH", "POST", "DELETE"},
		AllowedHeaders: []string{"Origin", "Content-Type", "Authorization", "Accept", APIKeyHeaderName,
			"If-Modified-Since", "Cache-Control", "Pragma"},
		ExposedHeaders:   []string{"Content-Length", "Content-Type", "Cache-Control", "Last-Modified"},
		AllowCredentials: true,
	})
	return c.Handler
}
