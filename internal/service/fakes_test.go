package service

import (
	"context"
	"sync"
)

// directTx runs fn without a transaction and counts invocations.
type directTx struct{ runs int }

func (d *directTx) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	d.runs++
	return fn(ctx)
}

type recordedEvent struct {
	Key     string
	Payload any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []recordedEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, key string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{Key: key, Payload: payload})
	return p.err
}

func (p *recordingPublisher) keys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Key)
	}
	return out
}

type fakeVerifier map[string]*VerifiedIdentity

func (f fakeVerifier) Verify(_ context.Context, token string) (*VerifiedIdentity, error) {
	if token == "down" {
		return nil, errFakeTransport
	}
	id, ok := f[token]
	if !ok {
		return nil, ErrInvalidToken
	}
	return id, nil
}

var errFakeTransport = &transportError{}

type transportError struct{}

func (*transportError) Error() string { return "connection refused" }
