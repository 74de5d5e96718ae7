package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"arxidemo/internal/contact"
	"arxidemo/internal/domain"
	"arxidemo/internal/repo"
	"arxidemo/internal/session"
	"arxidemo/internal/store"
	"arxidemo/internal/tour"
)

// Config for the HTTP API handler.
type Config struct {
	Registry *session.Registry
	Relay    *contact.Relay
	// Repo serves the per-session event log. Optional.
	Repo     repo.Repo
	BasePath string
	Auth     AuthConfig
	Logger   *slog.Logger
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"session_not_found"`
	Message string         `json:"message" example:"session not found"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true" example:"{\"retry_after_seconds\":120}"`
}

type requestKey struct{}

// apiError models the error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the demo session API.
func New(cfg Config) (http.Handler, error) {
	if cfg.Registry == nil {
		return nil, errors.New("session registry required")
	}
	if strings.TrimSpace(cfg.Auth.JWTSecret) == "" {
		return nil, errors.New("jwt secret required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v0"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	huma.DefaultArrayNullable = false
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "validation") {
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	router := chi.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ctx := context.WithValue(r.Context(), requestKey{}, r)
			next.ServeHTTP(w, r.WithContext(ctx))
			cfg.Logger.Debug("request", "method", r.Method, "path", r.URL.Path, "elapsed", time.Since(start))
		})
	})
	router.Use(newAuthMiddleware(basePath, cfg.Auth))
	hcfg := huma.DefaultConfig("Arxitest Demo API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	hcfg.DocsPath = ""
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerDocs(router, basePath)
	registerHealth(group)
	registerSessions(group, cfg.Registry, cfg.Auth)
	registerActions(group, cfg.Registry)
	registerForms(group, cfg.Registry)
	registerReports(group, cfg.Registry)
	registerEvents(group, cfg.Registry, cfg.Repo)
	registerContact(group, cfg.Relay)
	registerOpenAPI(router, api, basePath)

	return router, nil
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	var cooldown *contact.CooldownError
	if errors.As(err, &cooldown) {
		return newAPIError(http.StatusTooManyRequests, "cooldown", err.Error(), map[string]any{
			"retry_after_seconds": int(cooldown.Remaining.Round(time.Second).Seconds()),
		})
	}
	switch {
	case errors.Is(err, session.ErrNotFound):
		return newAPIError(http.StatusNotFound, "session_not_found", err.Error(), nil)
	case errors.Is(err, session.ErrClosed):
		return newAPIError(http.StatusGone, "session_closed", err.Error(), nil)
	case errors.Is(err, tour.ErrExecutionNotFound), errors.Is(err, store.ErrNotFound):
		return newAPIError(http.StatusNotFound, "not_found", err.Error(), nil)
	case errors.Is(err, tour.ErrUnknownAction):
		return newAPIError(http.StatusBadRequest, "unknown_action", err.Error(), nil)
	case errors.Is(err, contact.ErrInvalidEmail):
		return newAPIError(http.StatusBadRequest, "invalid_email", err.Error(), nil)
	}
	msg := err.Error()
	if strings.Contains(strings.ToLower(msg), "invalid") {
		return newAPIError(http.StatusBadRequest, "bad_request", msg, nil)
	}
	return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": msg})
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "validation_failed"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

func registerDocs(r chi.Router, basePath string) {
	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, swaggerHTML(basePath))
	})
}

func registerOpenAPI(r chi.Router, api huma.API, basePath string) {
	var spec []byte
	specPath := path.Join(basePath, "openapi.json")
	r.Get(specPath, func(w http.ResponseWriter, r *http.Request) {
		if spec == nil {
			oas := api.OpenAPI()
			ensureDefaultErrorResponses(oas)
			applyAuthSecurity(oas, basePath)
			spec, _ = json.Marshal(oas)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(spec)
	})
}

func ensureDefaultErrorResponses(oas *huma.OpenAPI) {
	if oas == nil || oas.Paths == nil {
		return
	}
	for _, item := range oas.Paths {
		for _, op := range operations(item) {
			if op.Responses == nil {
				op.Responses = map[string]*huma.Response{}
			}
			op.Responses["default"] = &huma.Response{
				Description: "Error",
				Content: map[string]*huma.MediaType{
					"application/json": {
						Schema: &huma.Schema{Ref: "#/components/schemas/ApiError"},
					},
				},
			}
		}
	}
}

// applyAuthSecurity marks every per-session route as requiring the
// session's bearer token.
func applyAuthSecurity(oas *huma.OpenAPI, basePath string) {
	if oas == nil {
		return
	}
	if oas.Components == nil {
		oas.Components = &huma.Components{}
	}
	if oas.Components.SecuritySchemes == nil {
		oas.Components.SecuritySchemes = map[string]*huma.SecurityScheme{}
	}
	oas.Components.SecuritySchemes["bearerAuth"] = &huma.SecurityScheme{
		Type:         "http",
		Scheme:       "bearer",
		BearerFormat: "JWT",
	}
	security := []map[string][]string{{"bearerAuth": {}}}
	prefix := path.Join(basePath, "sessions") + "/"
	for route, item := range oas.Paths {
		for _, op := range operations(item) {
			if strings.HasPrefix(route, prefix) {
				op.Security = security
				continue
			}
			op.Security = []map[string][]string{}
		}
	}
}

func operations(item *huma.PathItem) []*huma.Operation {
	var ops []*huma.Operation
	for _, op := range []*huma.Operation{
		item.Get, item.Put, item.Post, item.Delete, item.Options, item.Head, item.Patch, item.Trace,
	} {
		if op != nil {
			ops = append(ops, op)
		}
	}
	return ops
}

func swaggerHTML(basePath string) string {
	specURL := path.Join("/", path.Join(basePath, "openapi.json"))
	return fmt.Sprintf(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>Arxitest Demo API Docs</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js" crossorigin></script>
    <script>
      window.onload = () => {
        SwaggerUIBundle({
          url: '%s',
          dom_id: '#swagger-ui'
        });
      };
    </script>
    <p style="padding: 1rem; font-family: sans-serif; color: #444;">
      Create a session with POST /sessions, then send its token as Authorization: Bearer &lt;token&gt;.
    </p>
  </body>
</html>`, specURL)
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

type sessionPath struct {
	SessionID string `path:"session_id"`
}

type stateOutput struct {
	Body tour.State `json:"body"`
}

type actionOutput struct {
	Body ActionResponse `json:"body"`
}

func lookup(reg *session.Registry, id string) (*session.Session, huma.StatusError) {
	s, err := reg.Get(id)
	if err != nil {
		return nil, handleError(err)
	}
	return s, nil
}

func dispatch(reg *session.Registry, id string, cmd tour.Command) (*actionOutput, error) {
	s, apiErr := lookup(reg, id)
	if apiErr != nil {
		return nil, apiErr
	}
	st, applied, err := s.Dispatch(cmd)
	if err != nil {
		return nil, handleError(err)
	}
	return &actionOutput{Body: ActionResponse{Applied: applied, State: st}}, nil
}

func registerSessions(api huma.API, reg *session.Registry, authCfg AuthConfig) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-session",
		Method:        http.MethodPost,
		Path:          "/sessions",
		Summary:       "Start a demo session",
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body CreateSessionResponse `json:"body"`
	}, error) {
		s := reg.Create()
		token, expires, err := authCfg.issue(s.ID)
		if err != nil {
			_ = reg.Delete(s.ID)
			return nil, handleError(err)
		}
		return &struct {
			Body CreateSessionResponse `json:"body"`
		}{Body: CreateSessionResponse{
			SessionID: s.ID,
			Token:     token,
			ExpiresAt: expires,
			State:     s.State(),
		}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-session",
		Method:      http.MethodGet,
		Path:        "/sessions/{session_id}",
		Summary:     "Current session state",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *sessionPath) (*stateOutput, error) {
		s, apiErr := lookup(reg, input.SessionID)
		if apiErr != nil {
			return nil, apiErr
		}
		return &stateOutput{Body: s.State()}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-session",
		Method:        http.MethodDelete,
		Path:          "/sessions/{session_id}",
		Summary:       "End a session and cancel its timers",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusNotFound},
	}, func(ctx context.Context, input *sessionPath) (*struct{}, error) {
		if err := reg.Delete(input.SessionID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-overlay",
		Method:      http.MethodGet,
		Path:        "/sessions/{session_id}/overlay",
		Summary:     "Tooltip and highlight for the current step",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *sessionPath) (*struct {
		Body OverlayResponse `json:"body"`
	}, error) {
		s, apiErr := lookup(reg, input.SessionID)
		if apiErr != nil {
			return nil, apiErr
		}
		resp := OverlayResponse{}
		if ov, ok := s.State().Overlay(); ok {
			resp.Visible = true
			resp.Overlay = &ov
		}
		return &struct {
			Body OverlayResponse `json:"body"`
		}{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-views",
		Method:      http.MethodGet,
		Path:        "/sessions/{session_id}/views",
		Summary:     "Filtered entity lists and sidebar counts",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *sessionPath) (*struct {
		Body store.Views `json:"body"`
	}, error) {
		s, apiErr := lookup(reg, input.SessionID)
		if apiErr != nil {
			return nil, apiErr
		}
		return &struct {
			Body store.Views `json:"body"`
		}{Body: s.State().Views()}, nil
	})
}

func registerActions(api huma.API, reg *session.Registry) {
	huma.Register(api, huma.Operation{
		OperationID: "click",
		Method:      http.MethodPost,
		Path:        "/sessions/{session_id}/actions",
		Summary:     "Fire a gated control or entity card",
		Description: "Denied actions are not errors: the response reports applied=false and the unchanged state.",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		SessionID string `path:"session_id"`
		Body      ActionRequest
	}) (*actionOutput, error) {
		a, err := tour.ParseAction(input.Body.Action)
		if err != nil {
			return nil, handleError(err)
		}
		return dispatch(reg, input.SessionID, tour.Click{Action: a})
	})

	huma.Register(api, huma.Operation{
		OperationID: "gate",
		Method:      http.MethodGet,
		Path:        "/sessions/{session_id}/gate",
		Summary:     "Ask whether an action is currently permitted",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		SessionID string `path:"session_id"`
		Action    string `query:"action" required:"true" example:"teams-tab"`
	}) (*struct {
		Body GateResponse `json:"body"`
	}, error) {
		a, err := tour.ParseAction(input.Action)
		if err != nil {
			return nil, handleError(err)
		}
		s, apiErr := lookup(reg, input.SessionID)
		if apiErr != nil {
			return nil, apiErr
		}
		return &struct {
			Body GateResponse `json:"body"`
		}{Body: GateResponse{Action: a.String(), Allowed: s.IsAllowed(a)}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-search",
		Method:      http.MethodPut,
		Path:        "/sessions/{session_id}/search",
		Summary:     "Set the search query applied to every view",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		SessionID string `path:"session_id"`
		Body      SearchRequest
	}) (*actionOutput, error) {
		return dispatch(reg, input.SessionID, tour.SetSearch{Query: input.Body.Query})
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-modal",
		Method:      http.MethodPut,
		Path:        "/sessions/{session_id}/modal",
		Summary:     "Open a creation form, or close the open one",
		Description: "Opening goes through the matching add control and is gated like a click.",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		SessionID string `path:"session_id"`
		Body      ModalRequest
	}) (*actionOutput, error) {
		cmd, err := modalCommand(input.Body.Modal)
		if err != nil {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", err.Error(), map[string]any{"modal": input.Body.Modal})
		}
		return dispatch(reg, input.SessionID, cmd)
	})

	huma.Register(api, huma.Operation{
		OperationID: "remove-entity",
		Method:      http.MethodDelete,
		Path:        "/sessions/{session_id}/entities/{kind}/{entity_id}",
		Summary:     "Delete an entity through its row control",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		SessionID string `path:"session_id"`
		Kind      string `path:"kind" enum:"team,project,story,testcase,testsuite,execution"`
		EntityID  string `path:"entity_id"`
	}) (*actionOutput, error) {
		kind, err := domain.ParseKind(input.Kind)
		if err != nil {
			return nil, handleError(err)
		}
		return dispatch(reg, input.SessionID, tour.Remove{Kind: kind, ID: input.EntityID})
	})
}

func modalCommand(name string) (tour.Command, error) {
	switch tour.Modal(strings.TrimSpace(name)) {
	case tour.ModalNone:
		return tour.CloseModal{}, nil
	case tour.ModalTeam:
		return tour.Click{Action: tour.Static(tour.AddTeamButton)}, nil
	case tour.ModalProject:
		return tour.Click{Action: tour.Static(tour.AddProjectButton)}, nil
	case tour.ModalStory:
		return tour.Click{Action: tour.Static(tour.AddStory)}, nil
	case tour.ModalTestCase:
		return tour.Click{Action: tour.Static(tour.AddTestCaseButton)}, nil
	}
	return nil, fmt.Errorf("invalid modal %q", name)
}

func registerForms(api huma.API, reg *session.Registry) {
	huma.Register(api, huma.Operation{
		OperationID: "submit-team",
		Method:      http.MethodPost,
		Path:        "/sessions/{session_id}/teams",
		Summary:     "Submit the team form",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		SessionID string `path:"session_id"`
		Body      TeamRequest
	}) (*actionOutput, error) {
		return dispatch(reg, input.SessionID, tour.SubmitTeam{Name: input.Body.Name})
	})

	huma.Register(api, huma.Operation{
		OperationID: "submit-project",
		Method:      http.MethodPost,
		Path:        "/sessions/{session_id}/projects",
		Summary:     "Submit the project form",
		Description: "The project appears once the import delay has elapsed.",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		SessionID string `path:"session_id"`
		Body      ProjectRequest
	}) (*actionOutput, error) {
		source, err := domain.ParseSource(input.Body.Source)
		if err != nil {
			return nil, handleError(err)
		}
		return dispatch(reg, input.SessionID, tour.SubmitProject{Name: input.Body.Name, Source: source})
	})

	huma.Register(api, huma.Operation{
		OperationID: "submit-story",
		Method:      http.MethodPost,
		Path:        "/sessions/{session_id}/stories",
		Summary:     "Submit the story form",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		SessionID string `path:"session_id"`
		Body      StoryRequest
	}) (*actionOutput, error) {
		priority, err := domain.ParsePriority(input.Body.Priority)
		if err != nil {
			return nil, handleError(err)
		}
		return dispatch(reg, input.SessionID, tour.SubmitStory{
			Title:       input.Body.Title,
			Description: input.Body.Description,
			Priority:    priority,
		})
	})

	huma.Register(api, huma.Operation{
		OperationID: "submit-test-case",
		Method:      http.MethodPost,
		Path:        "/sessions/{session_id}/test-cases",
		Summary:     "Submit the test case form",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		SessionID string `path:"session_id"`
		Body      TestCaseRequest
	}) (*actionOutput, error) {
		framework, err := domain.ParseFramework(input.Body.Framework)
		if err != nil {
			return nil, handleError(err)
		}
		return dispatch(reg, input.SessionID, tour.SubmitTestCase{
			Name:        input.Body.Name,
			Description: input.Body.Description,
			Framework:   framework,
			StoryID:     input.Body.StoryID,
		})
	})

	huma.Register(api, huma.Operation{
		OperationID: "request-draft",
		Method:      http.MethodPost,
		Path:        "/sessions/{session_id}/drafts/{kind}",
		Summary:     "Ask the assistant to prefill the open form",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		SessionID string        `path:"session_id"`
		Kind      string        `path:"kind" enum:"story,testcase"`
		Body      *DraftRequest `required:"false"`
	}) (*actionOutput, error) {
		s, apiErr := lookup(reg, input.SessionID)
		if apiErr != nil {
			return nil, apiErr
		}
		want := tour.ModalStory
		if input.Kind == string(tour.ModalTestCase) {
			want = tour.ModalTestCase
		}
		if open := s.State().Modal; open != want {
			return nil, newAPIError(http.StatusConflict, "form_not_open", fmt.Sprintf("no %s form is open", want), map[string]any{"modal": string(open)})
		}
		cmd := tour.RequestDraft{}
		if input.Body != nil {
			cmd.StoryID = input.Body.StoryID
		}
		return dispatch(reg, input.SessionID, cmd)
	})
}

func registerReports(api huma.API, reg *session.Registry) {
	huma.Register(api, huma.Operation{
		OperationID: "execution-report",
		Method:      http.MethodGet,
		Path:        "/sessions/{session_id}/executions/{execution_id}/report",
		Summary:     "Generate a test report for an execution",
		Description: "Reports are generated on every call and are not stored.",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		SessionID   string `path:"session_id"`
		ExecutionID string `path:"execution_id"`
	}) (*struct {
		Body domain.TestReport `json:"body"`
	}, error) {
		s, apiErr := lookup(reg, input.SessionID)
		if apiErr != nil {
			return nil, apiErr
		}
		report, err := s.Report(input.ExecutionID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.TestReport `json:"body"`
		}{Body: report}, nil
	})
}

func registerEvents(api huma.API, reg *session.Registry, r repo.Repo) {
	huma.Register(api, huma.Operation{
		OperationID: "session-events",
		Method:      http.MethodGet,
		Path:        "/sessions/{session_id}/events",
		Summary:     "Lifecycle events recorded for a session",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		SessionID string `path:"session_id"`
		Limit     int    `query:"limit" default:"50"`
		Cursor    string `query:"cursor"`
	}) (*struct {
		Body PaginatedEvents `json:"body"`
	}, error) {
		if _, apiErr := lookup(reg, input.SessionID); apiErr != nil {
			return nil, apiErr
		}
		resp := PaginatedEvents{Items: []domain.Event{}}
		if r.DB == nil {
			return &struct {
				Body PaginatedEvents `json:"body"`
			}{Body: resp}, nil
		}
		limit := normalizeLimit(input.Limit)
		var cursorID int64
		if input.Cursor != "" {
			parsed, err := strconv.ParseInt(input.Cursor, 10, 64)
			if err != nil {
				return nil, newAPIError(http.StatusBadRequest, "bad_request", "invalid cursor", map[string]any{"cursor": input.Cursor})
			}
			cursorID = parsed
		}
		items, err := r.EventsAfter(ctx, limit+1, cursorID, repo.EventFilter{EntityKind: "session", EntityID: input.SessionID})
		if err != nil {
			return nil, handleError(err)
		}
		if len(items) > limit {
			items = items[:limit]
			resp.NextCursor = strconv.FormatInt(items[limit-1].ID, 10)
		}
		resp.Items = append(resp.Items, items...)
		return &struct {
			Body PaginatedEvents `json:"body"`
		}{Body: resp}, nil
	})
}

func registerContact(api huma.API, relay *contact.Relay) {
	huma.Register(api, huma.Operation{
		OperationID: "request-demo",
		Method:      http.MethodPost,
		Path:        "/contact",
		Summary:     "Request a live demo",
		Description: "Relay failures are not errors: sent=false and the message carries a fallback address.",
		Errors:      []int{http.StatusBadRequest, http.StatusTooManyRequests, http.StatusServiceUnavailable},
	}, func(ctx context.Context, input *struct {
		Body ContactRequest
	}) (*struct {
		Body contact.Outcome `json:"body"`
	}, error) {
		if relay == nil {
			return nil, newAPIError(http.StatusServiceUnavailable, "contact_disabled", "demo requests are not configured", nil)
		}
		req := contact.Request{Email: input.Body.Email}
		if r := requestFromContext(ctx); r != nil {
			req.ClientKey = clientKey(r)
			req.UserAgent = r.UserAgent()
			req.Referrer = r.Referer()
		}
		out, err := relay.Submit(ctx, req)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body contact.Outcome `json:"body"`
		}{Body: out}, nil
	})
}

func requestFromContext(ctx context.Context) *http.Request {
	r, _ := ctx.Value(requestKey{}).(*http.Request)
	return r
}

// clientKey scopes the contact cooldown to the caller's host.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func normalizeLimit(in int) int {
	if in <= 0 {
		return 50
	}
	if in > 200 {
		return 200
	}
	return in
}
