package hashop

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"testing"

	"bootcore/internal/backend"
)

// fakeBackend counts the backend calls an Operation makes, so the tests
// can assert what does and does not cross the state machine boundary.
type fakeBackend struct {
	setupErr  error
	updateErr error
	finishErr error

	sessions int
	updates  int
	finishes int
	aborts   int
}

type fakeSession struct {
	b *fakeBackend
}

func (f *fakeBackend) NewHash(alg backend.HashAlgorithm) (backend.HashSession, error) {
	if f.setupErr != nil {
		return nil, f.setupErr
	}
	f.sessions++
	return &fakeSession{b: f}, nil
}

func (f *fakeBackend) VerifyHash(attr backend.Attributes, key []byte, alg backend.SignatureAlgorithm, hash, sig []byte) error {
	return backend.ErrNotSupported
}

func (f *fakeBackend) ExportPublicKey(attr backend.Attributes, key []byte, out []byte) (int, error) {
	return 0, backend.ErrNotSupported
}

func (s *fakeSession) Update(p []byte) error {
	s.b.updates++
	return s.b.updateErr
}

func (s *fakeSession) Finish(out []byte) (int, error) {
	s.b.finishes++
	if s.b.finishErr != nil {
		return 0, s.b.finishErr
	}
	return 4, nil
}

func (s *fakeSession) Abort() { s.b.aborts++ }

func TestLifecycle(t *testing.T) {
	fb := &fakeBackend{}
	op := New(fb)

	if op.State() != Idle {
		t.Fatalf("new operation state = %v, want idle", op.State())
	}
	if err := op.Setup(backend.HashSHA256); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if op.State() != Active {
		t.Fatalf("state after Setup = %v, want active", op.State())
	}
	if err := op.Update([]byte("payload")); err != nil {
		t.Fatalf("Update: %v", err)
	}
	out := make([]byte, 32)
	if _, err := op.Finish(out); err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if op.State() != Idle {
		t.Fatalf("state after Finish = %v, want idle", op.State())
	}
	if fb.sessions != 1 || fb.updates != 1 || fb.finishes != 1 {
		t.Errorf("backend calls = %+v", *fb)
	}
}

func TestUpdateBeforeSetup(t *testing.T) {
	op := New(&fakeBackend{})
	if err := op.Update([]byte("x")); !errors.Is(err, ErrNotActive) {
		t.Errorf("Update on idle op: %v, want ErrNotActive", err)
	}
	if _, err := op.Finish(make([]byte, 32)); !errors.Is(err, ErrNotActive) {
		t.Errorf("Finish on idle op: %v, want ErrNotActive", err)
	}
}

func TestSetupWhileActive(t *testing.T) {
	op := New(&fakeBackend{})
	if err := op.Setup(backend.HashSHA256); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if err := op.Setup(backend.HashSHA256); !errors.Is(err, ErrAlreadyActive) {
		t.Errorf("second Setup: %v, want ErrAlreadyActive", err)
	}
	// The first session survives the rejected Setup.
	if op.State() != Active {
		t.Errorf("state = %v, want active", op.State())
	}
}

func TestSetupFailureLeavesIdle(t *testing.T) {
	fb := &fakeBackend{setupErr: backend.ErrNotSupported}
	op := New(fb)

	if err := op.Setup(backend.HashAlgorithm(99)); !errors.Is(err, backend.ErrNotSupported) {
		t.Fatalf("Setup: %v, want ErrNotSupported", err)
	}
	if op.State() != Idle {
		t.Errorf("state after failed Setup = %v, want idle", op.State())
	}

	// The operation is reusable once the backend recovers.
	fb.setupErr = nil
	if err := op.Setup(backend.HashSHA256); err != nil {
		t.Errorf("Setup after recovery: %v", err)
	}
}

func TestZeroLengthUpdateSkipsBackend(t *testing.T) {
	fb := &fakeBackend{}
	op := New(fb)
	if err := op.Setup(backend.HashSHA256); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if err := op.Update(nil); err != nil {
		t.Fatalf("Update(nil): %v", err)
	}
	if err := op.Update([]byte{}); err != nil {
		t.Fatalf("Update(empty): %v", err)
	}
	if fb.updates != 0 {
		t.Errorf("zero-length updates reached the backend %d times", fb.updates)
	}
}

func TestUpdateFailureAborts(t *testing.T) {
	fb := &fakeBackend{updateErr: errors.New("digest unit fault")}
	op := New(fb)
	if err := op.Setup(backend.HashSHA256); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if err := op.Update([]byte("x")); err == nil {
		t.Fatal("Update did not surface the backend failure")
	}
	if op.State() != Idle {
		t.Errorf("state after failed Update = %v, want idle", op.State())
	}
	if fb.aborts != 1 {
		t.Errorf("backend aborts = %d, want 1", fb.aborts)
	}
}

func TestFinishConsumes(t *testing.T) {
	op := New(&fakeBackend{})
	if err := op.Setup(backend.HashSHA256); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if _, err := op.Finish(make([]byte, 32)); err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if _, err := op.Finish(make([]byte, 32)); !errors.Is(err, ErrNotActive) {
		t.Errorf("second Finish: %v, want ErrNotActive", err)
	}
	if err := op.Update([]byte("late")); !errors.Is(err, ErrNotActive) {
		t.Errorf("Update after Finish: %v, want ErrNotActive", err)
	}
}

func TestAbortIdempotent(t *testing.T) {
	fb := &fakeBackend{}
	op := New(fb)

	// Aborting a never-set-up operation is a no-op.
	op.Abort()
	op.Abort()
	if fb.aborts != 0 {
		t.Fatalf("idle aborts reached the backend %d times", fb.aborts)
	}

	if err := op.Setup(backend.HashSHA256); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	op.Abort()
	op.Abort()
	if fb.aborts != 1 {
		t.Errorf("backend aborts = %d, want exactly 1", fb.aborts)
	}
	if op.State() != Idle {
		t.Errorf("state after Abort = %v, want idle", op.State())
	}
}

// TestAgainstRealBackend runs the state machine over the software
// backend and checks the FIPS 180-4 "abc" vector end to end.
func TestAgainstRealBackend(t *testing.T) {
	op := New(backend.NewSoftware(nil))
	if err := op.Setup(backend.HashSHA256); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if err := op.Update([]byte("a")); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := op.Update([]byte("bc")); err != nil {
		t.Fatalf("Update: %v", err)
	}
	out := make([]byte, sha256.Size)
	n, err := op.Finish(out)
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	const want = "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got := hex.EncodeToString(out[:n]); got != want {
		t.Errorf("sha256(abc) = %s, want %s", got, want)
	}
}
