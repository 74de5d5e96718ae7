package contact

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"arxidemo/internal/events"
	"arxidemo/internal/repo"
)

// CooldownKey is the fixed name the last submission time is stored under.
const CooldownKey = "lastDemoRequest"

var (
	ErrInvalidEmail = errors.New("invalid email")
	ErrCooldown     = errors.New("cooldown active")
)

var emailShape = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidEmail reports whether s has the shape of an email address.
func ValidEmail(s string) bool {
	return emailShape.MatchString(strings.TrimSpace(s))
}

// CooldownError is returned while a client is still throttled.
type CooldownError struct {
	Remaining time.Duration
	Until     time.Time
}

func (e *CooldownError) Error() string {
	minutes := int(math.Ceil(e.Remaining.Minutes()))
	plural := "s"
	if minutes == 1 {
		plural = ""
	}
	return fmt.Sprintf("Please wait %d minute%s before requesting another demo", minutes, plural)
}

func (e *CooldownError) Is(target error) bool { return target == ErrCooldown }

type Config struct {
	Endpoint        string
	AccessKey       string
	FromName        string
	Subject         string
	FallbackAddress string
	Cooldown        time.Duration
	Timeout         time.Duration
}

// Request is one demo request as received from a visitor.
type Request struct {
	Email string
	// ClientKey scopes the cooldown, typically the caller's address.
	ClientKey string
	UserAgent string
	Referrer  string
}

// Outcome is what the visitor is shown. Relay failures are not errors:
// Sent is false and Message carries the fallback contact instruction.
type Outcome struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}

// Relay forwards demo requests to the form-relay endpoint.
type Relay struct {
	cfg    Config
	client *http.Client
	repo   repo.Repo
	events events.Writer
	now    func() time.Time
	log    *slog.Logger
}

type Option func(*Relay)

func WithHTTPClient(c *http.Client) Option { return func(r *Relay) { r.client = c } }

func WithClock(now func() time.Time) Option { return func(r *Relay) { r.now = now } }

func WithLogger(l *slog.Logger) Option { return func(r *Relay) { r.log = l } }

func New(cfg Config, rp repo.Repo, opts ...Option) *Relay {
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 5 * time.Minute
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	r := &Relay{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		repo:   rp,
		now:    time.Now,
		log:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.events = events.Writer{DB: rp.DB, Now: r.now}
	return r
}

// Fallback is the instruction shown when the relay cannot be reached.
func (r *Relay) Fallback() string {
	return "Unable to send demo request. Please contact us directly at " + r.cfg.FallbackAddress
}

type relayPayload struct {
	AccessKey string `json:"access_key"`
	Email     string `json:"email"`
	Message   string `json:"message"`
	FromName  string `json:"from_name"`
	Subject   string `json:"subject"`
}

type relayResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Submit validates req, enforces the per-client cooldown and posts the
// request. Validation and cooldown failures are returned as errors.
func (r *Relay) Submit(ctx context.Context, req Request) (Outcome, error) {
	email := strings.TrimSpace(req.Email)
	if email == "" {
		return Outcome{}, fmt.Errorf("%w: Please enter your email address", ErrInvalidEmail)
	}
	if !ValidEmail(email) {
		return Outcome{}, fmt.Errorf("%w: Please enter a valid email address", ErrInvalidEmail)
	}
	now := r.now()
	if err := r.checkCooldown(ctx, req.ClientKey, now); err != nil {
		return Outcome{}, err
	}

	if err := r.post(ctx, email, req, now); err != nil {
		r.log.Warn("demo request relay failed", "endpoint", r.cfg.Endpoint, "error", err)
		r.record(ctx, events.ContactFailed, req.ClientKey, events.Payload{"error": err.Error()})
		return Outcome{Sent: false, Message: r.Fallback()}, nil
	}
	if err := r.repo.StampCooldown(ctx, req.ClientKey, CooldownKey, now); err != nil {
		r.log.Warn("stamp cooldown failed", "client", req.ClientKey, "error", err)
	}
	r.record(ctx, events.ContactSent, req.ClientKey, events.Payload{"domain": emailDomain(email)})
	return Outcome{Sent: true, Message: "Demo request sent! We'll be in touch soon."}, nil
}

func (r *Relay) checkCooldown(ctx context.Context, clientKey string, now time.Time) error {
	last, err := r.repo.Cooldown(ctx, clientKey, CooldownKey)
	if errors.Is(err, repo.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read cooldown: %w", err)
	}
	elapsed := now.Sub(last)
	if elapsed >= r.cfg.Cooldown {
		return nil
	}
	until := last.Add(r.cfg.Cooldown)
	r.log.Info("demo request throttled", "client", clientKey, "retry", humanize.RelTime(now, until, "ago", "from now"))
	r.record(ctx, events.ContactThrottled, clientKey, nil)
	return &CooldownError{Remaining: r.cfg.Cooldown - elapsed, Until: until}
}

// Remaining reports how long clientKey still has to wait.
func (r *Relay) Remaining(ctx context.Context, clientKey string) (time.Duration, error) {
	last, err := r.repo.Cooldown(ctx, clientKey, CooldownKey)
	if errors.Is(err, repo.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return max(0, r.cfg.Cooldown-r.now().Sub(last)), nil
}

// Reset lifts the cooldown of clientKey.
func (r *Relay) Reset(ctx context.Context, clientKey string) error {
	if err := r.repo.ClearCooldown(ctx, clientKey); err != nil {
		return err
	}
	r.log.Info("demo request cooldown cleared", "client", clientKey)
	return nil
}

func (r *Relay) post(ctx context.Context, email string, req Request, at time.Time) error {
	referrer := req.Referrer
	if referrer == "" {
		referrer = "Direct visit"
	}
	message := fmt.Sprintf("Hello,\n\nI would like to request a demo of Arxitest.\n\nEmail: %s\nRequest Date: %s\nUser Agent: %s\nReferrer: %s\n\nThank you!",
		email, at.Format(time.RFC1123), req.UserAgent, referrer)
	data, err := json.Marshal(relayPayload{
		AccessKey: r.cfg.AccessKey,
		Email:     email,
		Message:   message,
		FromName:  r.cfg.FromName,
		Subject:   r.cfg.Subject,
	})
	if err != nil {
		return err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.cfg.Endpoint, bytes.NewReader(data))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	res, err := r.client.Do(httpReq)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return fmt.Errorf("status %d: %s", res.StatusCode, strings.TrimSpace(string(body)))
	}
	var out relayResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return fmt.Errorf("decode relay response: %w", err)
	}
	if !out.Success {
		return fmt.Errorf("relay rejected submission: %s", out.Message)
	}
	return nil
}

func (r *Relay) record(ctx context.Context, typ, clientKey string, payload events.Payload) {
	if r.repo.DB == nil {
		return
	}
	if err := r.events.Append(ctx, typ, "contact", clientKey, "relay", payload); err != nil {
		r.log.Warn("record contact event failed", "type", typ, "error", err)
	}
}

func emailDomain(email string) string {
	if i := strings.LastIndex(email, "@"); i >= 0 {
		return email[i+1:]
	}
	return ""
}
