package binding_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bionicotaku/sqlbind/binding"
	"github.com/bionicotaku/sqlbind/session"
	"github.com/bionicotaku/sqlbind/txmanager"
)

// fakeSession records every lifecycle action taken against it.
type fakeSession struct {
	mu        sync.Mutex
	executed  []session.Operation
	commits   int
	rollbacks int
	closes    int

	execResult any
	execErr    error
	commitErr  error
}

func (s *fakeSession) Execute(_ context.Context, op session.Operation) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.executed = append(s.executed, op)
	if s.execErr != nil {
		return nil, s.execErr
	}
	return s.execResult, nil
}

func (s *fakeSession) Commit(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closes > 0 || s.commits > 0 {
		return session.ErrClosed
	}
	if s.commitErr != nil {
		return s.commitErr
	}
	s.commits++
	return nil
}

func (s *fakeSession) Rollback(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closes > 0 {
		return session.ErrClosed
	}
	s.rollbacks++
	return nil
}

func (s *fakeSession) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closes > 0 {
		return session.ErrClosed
	}
	s.closes++
	return nil
}

func (s *fakeSession) snapshot() (commits, rollbacks, closes int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commits, s.rollbacks, s.closes
}

// fakeFactory hands out fresh fake sessions and remembers every one it
// opened.
type fakeFactory struct {
	mu      sync.Mutex
	opened  []*fakeSession
	openErr error

	execResult any
	execErr    error
	commitErr  error
}

func (f *fakeFactory) Open(context.Context) (session.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.openErr != nil {
		return nil, f.openErr
	}
	s := &fakeSession{execResult: f.execResult, execErr: f.execErr, commitErr: f.commitErr}
	f.opened = append(f.opened, s)
	return s, nil
}

func (f *fakeFactory) openedSessions() []*fakeSession {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*fakeSession(nil), f.opened...)
}

type fixture struct {
	manager  txmanager.Manager
	binder   *binding.Binder
	factory  *fakeFactory
	executor *binding.Executor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	manager, err := txmanager.NewManager(txmanager.Config{}, txmanager.Dependencies{})
	require.NoError(t, err)

	binder, err := binding.NewBinder(txmanager.NewCoordinator(), binding.Config{}, binding.Dependencies{})
	require.NoError(t, err)

	factory := &fakeFactory{}
	executor, err := binding.NewExecutor(factory, binder)
	require.NoError(t, err)

	return &fixture{manager: manager, binder: binder, factory: factory, executor: executor}
}

func insertOp(arg string) session.Operation {
	return session.Operation{
		Kind:      session.KindInsert,
		Statement: "account.insert",
		SQL:       "insert into accounts(name) values($1)",
		Args:      []any{arg},
	}
}

func selectListOp() session.Operation {
	return session.Operation{
		Kind:      session.KindSelectList,
		Statement: "account.selectAll",
		SQL:       "select * from accounts",
	}
}
