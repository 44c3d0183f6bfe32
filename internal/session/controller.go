// Package session owns the per-conversation state of the result view: which
// query is in flight, the result currently displayed and the chat transcript.
package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"ledgerview/internal/results"
)

var (
	// ErrStale is returned when a response arrives for a query that has been
	// superseded by a later one.
	ErrStale = errors.New("stale response")

	ErrUnknownSession = errors.New("unknown session")
	ErrInvalidRole    = errors.New("invalid transcript role")
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// MaxTranscript is how many messages a session keeps; older ones are dropped.
const MaxTranscript = 200

func (r Role) Valid() bool { return r == RoleUser || r == RoleAssistant }

// Ticket identifies one issued query.
type Ticket struct {
	Seq uint64 `json:"seq"`
}

type Message struct {
	Role    Role      `json:"role"`
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

// Controller sequences queries for one session. Only the response to the most
// recently issued ticket is ever dispatched; anything older is dropped so that
// a slow response cannot overwrite a newer one.
type Controller struct {
	mu sync.Mutex

	issued    uint64
	delivered uint64

	current     *results.QueryResult
	instruction results.RenderInstruction
	transcript  []Message
	keep        int

	now func() time.Time
}

func NewController() *Controller {
	return &Controller{instruction: results.Awaiting(), keep: MaxTranscript, now: time.Now}
}

// Issue allocates the ticket for a new query and supersedes all earlier ones.
func (c *Controller) Issue() Ticket {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.issued++
	return Ticket{Seq: c.issued}
}

// Deliver dispatches r if t is still the latest ticket and nothing has been
// delivered for it yet. Otherwise it returns ErrStale and leaves the current
// result untouched.
func (c *Controller) Deliver(t Ticket, r *results.QueryResult) (results.RenderInstruction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if t.Seq == 0 || t.Seq != c.issued || t.Seq <= c.delivered {
		return c.instruction, fmt.Errorf("deliver seq %d (latest %d): %w", t.Seq, c.issued, ErrStale)
	}
	c.delivered = t.Seq
	c.current = r
	c.instruction = results.Dispatch(r)
	return c.instruction, nil
}

// Current returns the instruction for the displayed result.
func (c *Controller) Current() results.RenderInstruction {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.instruction
}

// Result returns the displayed result, nil before the first delivery.
func (c *Controller) Result() *results.QueryResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Latest returns the most recently issued ticket.
func (c *Controller) Latest() Ticket {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Ticket{Seq: c.issued}
}

// Record appends a message to the transcript, dropping the oldest messages
// beyond MaxTranscript.
func (c *Controller) Record(role Role, content string) error {
	if !role.Valid() {
		return fmt.Errorf("record %q: %w", role, ErrInvalidRole)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transcript = append(c.transcript, Message{Role: role, Content: content, At: c.now()})
	if over := len(c.transcript) - c.keep; over > 0 {
		c.transcript = append(c.transcript[:0], c.transcript[over:]...)
	}
	return nil
}

// Transcript returns a copy of the conversation so far.
func (c *Controller) Transcript() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, len(c.transcript))
	copy(out, c.transcript)
	return out
}

// Reset clears the conversation and the displayed result. Tickets issued
// before the reset become stale; the counter itself is never rewound.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transcript = nil
	c.current = nil
	c.instruction = results.Awaiting()
	c.delivered = c.issued
}
