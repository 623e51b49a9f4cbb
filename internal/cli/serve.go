package cli

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/example/regionkit/pkg/engine"
	apperrors "github.com/example/regionkit/pkg/errors"
	"github.com/example/regionkit/pkg/mask"
	"github.com/example/regionkit/pkg/region"
	"github.com/example/regionkit/pkg/scope"
)

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve [document.json]",
		Short: "Serve the planning API over HTTP",
		Long: `Serve the planning API over HTTP.

Endpoints:
  GET  /healthz                  liveness check
  GET  /regions                  region hierarchy with prompts and links
  GET  /regions/{id}/mask.png    a region's coverage mask
  POST /plan                     build a generation plan`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), args[0], addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	return cmd
}

func (c *CLI) runServe(ctx context.Context, input, addr string) error {
	eng, _, err := c.loadEngine(input, false)
	if err != nil {
		return err
	}
	srv := &server{engine: eng}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", srv.handleHealth)
	r.Get("/regions", srv.handleRegions)
	r.Get("/regions/{id}/mask.png", srv.handleMask)
	r.Post("/plan", srv.handlePlan)

	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return withLogger(ctx, c.Logger) },
	}

	errCh := make(chan error, 1)
	go func() { errCh <- httpSrv.ListenAndServe() }()
	c.Logger.Info("serving planning API", "addr", addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

type server struct {
	engine *engine.Engine
}

type regionInfo struct {
	ID       string   `json:"id"`
	Text     string   `json:"text,omitempty"`
	Parent   string   `json:"parent,omitempty"`
	Links    []string `json:"links,omitempty"`
	Root     bool     `json:"root,omitempty"`
	Coverage float64  `json:"coverage"`
}

type planRequest struct {
	Kind      string  `json:"kind"`
	RegionID  string  `json:"region_id,omitempty"`
	TileRect  *[4]int `json:"tile_rect,omitempty"`
	Padding   int     `json:"padding,omitempty"`
	Selection string  `json:"selection,omitempty"` // base64 PNG
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleRegions(w http.ResponseWriter, r *http.Request) {
	rg := s.engine.Regions()
	var out []regionInfo
	for _, id := range rg.Regions() {
		reg, err := rg.Region(id)
		if err != nil {
			continue
		}
		cov, err := s.engine.Coverage().CoverageFor(id)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		out = append(out, regionInfo{
			ID:       id,
			Text:     reg.Text,
			Parent:   reg.Parent,
			Links:    reg.Links(),
			Root:     id == rg.RootID(),
			Coverage: cov.Mean(),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"generation": s.engine.Stamp(),
		"regions":    out,
	})
}

func (s *server) handleMask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	m, err := s.engine.Coverage().CoverageFor(id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, m.ToAlpha()); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(buf.Bytes())
}

func (s *server) handlePlan(w http.ResponseWriter, r *http.Request) {
	var pr planRequest
	if err := json.NewDecoder(r.Body).Decode(&pr); err != nil {
		s.writeError(w, r, apperrors.Wrap(apperrors.ErrCodeInvalidInput, err, "decode request"))
		return
	}
	req, err := pr.toScope()
	if err != nil {
		s.writeError(w, r, apperrors.Wrap(apperrors.ErrCodeInvalidInput, err, "invalid request"))
		return
	}

	result, err := s.engine.BuildPlan(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	data, err := engine.MarshalPlan(result.Plan)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (pr planRequest) toScope() (scope.Request, error) {
	kind, err := engine.ParseKind(pr.Kind)
	if err != nil {
		return scope.Request{}, err
	}
	req := scope.Request{Kind: kind, RegionID: pr.RegionID, Padding: pr.Padding}
	if pr.TileRect != nil {
		t := *pr.TileRect
		req.TileRect = image.Rect(t[0], t[1], t[2], t[3])
	}
	if pr.Selection != "" {
		data, err := base64.StdEncoding.DecodeString(pr.Selection)
		if err != nil {
			return req, fmt.Errorf("decode selection: %w", err)
		}
		img, err := png.Decode(bytes.NewReader(data))
		if err != nil {
			return req, fmt.Errorf("decode selection png: %w", err)
		}
		req.SelectionMask = mask.FromImage(img)
	}
	return req, nil
}

func (s *server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, region.ErrNotFound):
		status = http.StatusNotFound
	case apperrors.Is(err, apperrors.ErrCodeInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, scope.ErrDegenerateMask):
		status = http.StatusUnprocessableEntity
	}
	loggerFromContext(r.Context()).Error("request failed", "path", r.URL.Path, "err", err)
	writeJSON(w, status, map[string]string{
		"error": apperrors.UserMessage(err),
		"code":  string(apperrors.GetCode(err)),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
