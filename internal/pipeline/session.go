// Package pipeline drives the end-to-end asset extraction flow: input
// dispatch, per-page and per-asset analysis, token budget accounting,
// incremental result delivery, and regeneration.
package pipeline

import (
	"context"
	"sync"

	"github.com/sakthis4/Alt-Text/internal/crop"
	"github.com/sakthis4/Alt-Text/internal/models"
	"github.com/sakthis4/Alt-Text/internal/render"
	"github.com/sakthis4/Alt-Text/internal/store"
)

// Oracle is the external vision-language analysis service. Summarize
// and ExplainError never fail; they degrade to deterministic fallbacks
// inside the implementation.
type Oracle interface {
	AnalyzePage(ctx context.Context, img models.Raster) ([]models.PageDetection, error)
	AnalyzeSnippet(ctx context.Context, img models.Raster, typeHint string) (*models.SnippetDetection, error)
	Summarize(ctx context.Context, items []models.Annotation) string
	ExplainError(ctx context.Context, raw error) string
}

// ImageFetcher retrieves a remote image submitted by URL
type ImageFetcher interface {
	FetchImage(ctx context.Context, url string) ([]byte, string, error)
}

// State is the orchestrator's run state
type State string

const (
	StateIdle       State = "idle"
	StateProcessing State = "processing"
	StateDone       State = "done"
	StateError      State = "error"
)

// Default resource parameters
const (
	DefaultTokenBudget = 100
	DefaultItemCost    = 1
)

// Options configures a session
type Options struct {
	// TokenBudget is the session's starting token balance
	TokenBudget int
	// ItemCost is the number of tokens debited per analysis or
	// regeneration call
	ItemCost int
	// CropMargin is the safety margin in pixels around asset crops.
	// Zero means the default margin.
	CropMargin int
}

// Session owns one user's processing state: the token budget, the
// result store, and the run state machine. Sessions are explicit and
// injectable rather than process-wide, so tests construct isolated
// ones freely.
type Session struct {
	oracle   Oracle
	renderer render.Renderer
	fetcher  ImageFetcher
	cropper  *crop.Cropper

	budget *Budget
	cost   int
	store  *store.Store

	state   State
	notice  string
	summary string
	mu      sync.Mutex
}

// Status is a point-in-time view of the session for consumers
type Status struct {
	State   State  `json:"state"`
	Notice  string `json:"notice,omitempty"`
	Summary string `json:"summary,omitempty"`
	Balance int    `json:"token_balance"`
	Items   int    `json:"items"`
}

// NewSession builds a session around its collaborators
func NewSession(oracle Oracle, renderer render.Renderer, fetcher ImageFetcher, opts Options) *Session {
	if opts.TokenBudget <= 0 {
		opts.TokenBudget = DefaultTokenBudget
	}
	if opts.ItemCost <= 0 {
		opts.ItemCost = DefaultItemCost
	}
	cropper := crop.New()
	if opts.CropMargin > 0 {
		cropper.Margin = opts.CropMargin
	}

	return &Session{
		oracle:   oracle,
		renderer: renderer,
		fetcher:  fetcher,
		cropper:  cropper,
		budget:   NewBudget(opts.TokenBudget),
		cost:     opts.ItemCost,
		store:    store.New(),
		state:    StateIdle,
	}
}

// Store exposes the session's result collection
func (s *Session) Store() *store.Store {
	return s.store
}

// Balance returns the remaining token balance
func (s *Session) Balance() int {
	return s.budget.Balance()
}

// Status reports the current run state, notice, and summary
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		State:   s.state,
		Notice:  s.notice,
		Summary: s.summary,
		Balance: s.budget.Balance(),
		Items:   s.store.Len(),
	}
}

// Reset returns a finished session to idle and clears the result
// collection. The token balance survives; it is a session-lifetime
// resource, not a per-run one.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateProcessing {
		return ErrResetWhileProcessing
	}
	s.state = StateIdle
	s.notice = ""
	s.summary = ""
	s.store.Clear()
	return nil
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}

func (s *Session) setNotice(notice string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notice = notice
}

func (s *Session) setSummary(summary string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summary = summary
}
