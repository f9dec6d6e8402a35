package clients

import (
	"fmt"
	"strings"
	"sync"

	"github.com/go-routeros/routeros/v3"
	"github.com/go-routeros/routeros/v3/proto"
)

// FakeSession is a deterministic in-memory Session used by tests and
// sandbox mode. Command handlers are matched by the command word (the
// first element of the sentence); unmatched commands return an empty
// reply.
type FakeSession struct {
	mu       sync.Mutex
	handlers map[string]func(args []string) (*routeros.Reply, error)
	calls    []string
	closed   bool
}

// NewFakeSession builds an empty fake session.
func NewFakeSession() *FakeSession {
	return &FakeSession{
		handlers: make(map[string]func(args []string) (*routeros.Reply, error)),
	}
}

// Handle registers a handler for a command word.
func (s *FakeSession) Handle(command string, fn func(args []string) (*routeros.Reply, error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[command] = fn
}

// Calls returns the commands executed so far.
func (s *FakeSession) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.calls))
	copy(out, s.calls)
	return out
}

// CallCount returns how many times a command word was executed.
func (s *FakeSession) CallCount(command string) int {
	n := 0
	for _, c := range s.Calls() {
		if c == command {
			n++
		}
	}
	return n
}

// Closed reports whether Close was called.
func (s *FakeSession) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *FakeSession) RunArgs(args []string) (*routeros.Reply, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("empty sentence")
	}
	command := args[0]
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, fmt.Errorf("session closed")
	}
	s.calls = append(s.calls, command)
	fn := s.handlers[command]
	s.mu.Unlock()

	if fn != nil {
		return fn(args)
	}
	return &routeros.Reply{Done: &proto.Sentence{Word: "!done"}}, nil
}

func (s *FakeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// ReplyRe builds a reply with one !re sentence per attribute map.
func ReplyRe(maps ...map[string]string) *routeros.Reply {
	reply := &routeros.Reply{Done: &proto.Sentence{Word: "!done"}}
	for _, m := range maps {
		reply.Re = append(reply.Re, &proto.Sentence{Word: "!re", Map: m})
	}
	return reply
}

// ReplyDone builds a bare !done reply carrying the given attributes
// (e.g. the "ret" id RouterOS returns from add commands).
func ReplyDone(attrs map[string]string) *routeros.Reply {
	return &routeros.Reply{Done: &proto.Sentence{Word: "!done", Map: attrs}}
}

// TrapError builds the error RouterOS returns when a command fails.
func TrapError(message string) error {
	return &routeros.DeviceError{Sentence: &proto.Sentence{
		Word: "!trap",
		Map:  map[string]string{"message": message},
	}}
}

// SentenceArg extracts "=key=value" style argument values from a sentence.
func SentenceArg(args []string, key string) string {
	prefix := "=" + key + "="
	for _, a := range args {
		if strings.HasPrefix(a, prefix) {
			return strings.TrimPrefix(a, prefix)
		}
	}
	return ""
}
