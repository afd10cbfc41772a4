package focus_test

import (
	"runtime"
	"sync"
	"testing"

	"github.com/haivivi/audiofocus/pkg/focus"
)

// fakeService returns a fixed result and records every call.
type fakeService struct {
	mu       sync.Mutex
	result   focus.Result
	requests []*focus.Request
	abandons []*focus.Request
}

func (s *fakeService) RequestFocus(req *focus.Request) focus.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	return s.result
}

func (s *fakeService) AbandonFocus(req *focus.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.abandons = append(s.abandons, req)
}

func (s *fakeService) setResult(r focus.Result) {
	s.mu.Lock()
	s.result = r
	s.mu.Unlock()
}

// fakeSession counts play and pause calls.
type fakeSession struct {
	mu       sync.Mutex
	plays    int
	pauses   int
	inactive bool
	name     string
}

func (s *fakeSession) Play() {
	s.mu.Lock()
	s.plays++
	s.mu.Unlock()
}

func (s *fakeSession) Pause() {
	s.mu.Lock()
	s.pauses++
	s.mu.Unlock()
}

func (s *fakeSession) IsActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.inactive
}

func (s *fakeSession) deactivate() {
	s.mu.Lock()
	s.inactive = true
	s.mu.Unlock()
}

func (s *fakeSession) counts() (plays, pauses int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.plays, s.pauses
}

func newTestArbiter(t *testing.T, result focus.Result) (*focus.Arbiter, *fakeService) {
	t.Helper()
	svc := &fakeService{result: result}
	return focus.New(svc, focus.WithAllowFocusManagement(true)), svc
}

func expectCounts(t *testing.T, s *fakeSession, plays, pauses int) {
	t.Helper()
	gotPlays, gotPauses := s.counts()
	if gotPlays != plays || gotPauses != pauses {
		t.Fatalf("plays=%d pauses=%d, want plays=%d pauses=%d", gotPlays, gotPauses, plays, pauses)
	}
}

func TestUnmanagedBypass(t *testing.T) {
	svc := &fakeService{result: focus.Denied}
	arb := focus.New(svc)
	s := &fakeSession{}

	arb.OnPlay(focus.WeakRef(s))

	if len(svc.requests) != 0 {
		t.Fatalf("requests = %d, want 0", len(svc.requests))
	}
	expectCounts(t, s, 0, 0)

	arb.SetAllowFocusManagement(true)
	arb.OnPlay(focus.WeakRef(s))
	if len(svc.requests) != 1 {
		t.Fatalf("requests after enabling = %d, want 1", len(svc.requests))
	}
	expectCounts(t, s, 0, 1)

	arb.SetAllowFocusManagement(false)
	if arb.AllowFocusManagement() {
		t.Fatal("AllowFocusManagement = true after disabling")
	}
	arb.OnPlay(focus.WeakRef(s))
	if len(svc.requests) != 1 {
		t.Fatalf("requests after disabling = %d, want 1", len(svc.requests))
	}
}

func TestGrantedIsSilent(t *testing.T) {
	arb, svc := newTestArbiter(t, focus.Granted)
	s := &fakeSession{}

	arb.OnPlay(focus.WeakRef(s))

	expectCounts(t, s, 0, 0)
	if len(svc.requests) != 1 {
		t.Fatalf("requests = %d, want 1", len(svc.requests))
	}
	if st := arb.Status(); st.State != focus.StatePlaying || st.PlaybackDelayed || st.ResumeOnFocusGain {
		t.Fatalf("Status = %+v", st)
	}
}

func TestDelayedPausesAndArmsResume(t *testing.T) {
	arb, _ := newTestArbiter(t, focus.Delayed)
	s := &fakeSession{}

	arb.OnPlay(focus.WeakRef(s))
	expectCounts(t, s, 0, 1)

	st := arb.Status()
	if !st.PlaybackDelayed || st.ResumeOnFocusGain || st.State != focus.StateDelayed {
		t.Fatalf("Status after delayed = %+v", st)
	}

	arb.OnFocusChange(focus.Gained)
	expectCounts(t, s, 1, 1)
	if st := arb.Status(); st.PlaybackDelayed || st.State != focus.StatePlaying {
		t.Fatalf("Status after gained = %+v", st)
	}
}

func TestDeniedPausesWithoutResume(t *testing.T) {
	for _, res := range []focus.Result{focus.Denied, focus.Failed, focus.Result(42)} {
		t.Run(res.String(), func(t *testing.T) {
			arb, _ := newTestArbiter(t, res)
			s := &fakeSession{}

			arb.OnPlay(focus.WeakRef(s))
			expectCounts(t, s, 0, 1)

			arb.OnFocusChange(focus.Gained)
			expectCounts(t, s, 0, 1)
			if st := arb.Status(); st.State != focus.StatePaused {
				t.Fatalf("State = %s, want paused", st.State)
			}
		})
	}
}

func TestTransientLossResumes(t *testing.T) {
	for _, change := range []focus.Change{focus.LostTransient, focus.LostTransientCanDuck} {
		t.Run(change.String(), func(t *testing.T) {
			arb, _ := newTestArbiter(t, focus.Granted)
			s := &fakeSession{}

			arb.OnPlay(focus.WeakRef(s))
			arb.OnFocusChange(change)
			expectCounts(t, s, 0, 1)
			if st := arb.Status(); !st.ResumeOnFocusGain || st.State != focus.StatePausedTransient {
				t.Fatalf("Status after loss = %+v", st)
			}

			arb.OnFocusChange(focus.Gained)
			expectCounts(t, s, 1, 1)
		})
	}
}

func TestPermanentLossDoesNotResume(t *testing.T) {
	arb, _ := newTestArbiter(t, focus.Granted)
	s := &fakeSession{}

	arb.OnPlay(focus.WeakRef(s))
	arb.OnFocusChange(focus.LostPermanent)
	arb.OnFocusChange(focus.Gained)

	expectCounts(t, s, 0, 1)
}

func TestPermanentLossClearsTransient(t *testing.T) {
	arb, _ := newTestArbiter(t, focus.Granted)
	s := &fakeSession{}

	arb.OnPlay(focus.WeakRef(s))
	arb.OnFocusChange(focus.LostTransient)
	arb.OnFocusChange(focus.LostPermanent)
	arb.OnFocusChange(focus.Gained)

	expectCounts(t, s, 0, 2)
}

func TestGainedWithNothingPending(t *testing.T) {
	arb, _ := newTestArbiter(t, focus.Granted)
	s := &fakeSession{}

	arb.OnPlay(focus.WeakRef(s))
	arb.OnFocusChange(focus.Gained)

	expectCounts(t, s, 0, 0)
}

func TestStopResetsAndReleases(t *testing.T) {
	tests := []struct {
		name   string
		result focus.Result
		change focus.Change
	}{
		{"delayed", focus.Delayed, focus.ChangeNone},
		{"transient", focus.Granted, focus.LostTransient},
		{"denied", focus.Denied, focus.ChangeNone},
		{"granted", focus.Granted, focus.ChangeNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			arb, svc := newTestArbiter(t, tt.result)
			s := &fakeSession{}

			arb.OnPlay(focus.WeakRef(s))
			if tt.change != focus.ChangeNone {
				arb.OnFocusChange(tt.change)
			}
			_, pauses := s.counts()

			arb.OnStop(focus.WeakRef(s))

			st := arb.Status()
			if st.PlaybackDelayed || st.ResumeOnFocusGain || st.State != focus.StateIdle {
				t.Fatalf("Status after stop = %+v", st)
			}
			if len(svc.abandons) != 1 {
				t.Fatalf("abandons = %d, want 1", len(svc.abandons))
			}
			if svc.abandons[0] != svc.requests[0] {
				t.Fatal("abandon used a different descriptor than request")
			}
			expectCounts(t, s, 0, pauses)

			arb.OnFocusChange(focus.Gained)
			expectCounts(t, s, 0, pauses)
		})
	}
}

func TestDescriptorIsReused(t *testing.T) {
	arb, svc := newTestArbiter(t, focus.Granted)
	s := &fakeSession{}

	arb.OnPlay(focus.WeakRef(s))
	arb.OnStop(focus.WeakRef(s))
	arb.OnPlay(focus.WeakRef(s))

	if svc.requests[0] != svc.requests[1] || svc.requests[0] != arb.Request() {
		t.Fatal("descriptor was rebuilt")
	}
	req := arb.Request()
	if req.Attributes.Usage != focus.UsageMedia || req.Attributes.ContentType != focus.ContentMusic {
		t.Fatalf("attributes = %+v", req.Attributes)
	}
	if req.AcceptsDucking {
		t.Fatal("descriptor accepts ducking")
	}
	if req.Listener != focus.Listener(arb) {
		t.Fatal("descriptor listener is not the arbiter")
	}
}

func TestStaleTargetIsSkipped(t *testing.T) {
	arb, _ := newTestArbiter(t, focus.Granted)
	s := &fakeSession{}

	arb.OnPlay(focus.WeakRef(s))
	s.deactivate()

	arb.OnFocusChange(focus.LostTransient)
	arb.OnFocusChange(focus.Gained)

	expectCounts(t, s, 0, 0)
	if arb.Status().HasTarget {
		t.Fatal("HasTarget = true for an inactive session")
	}
}

func TestCollectedTargetIsSkipped(t *testing.T) {
	arb, svc := newTestArbiter(t, focus.Delayed)

	func() {
		s := &fakeSession{name: "collected"}
		arb.OnPlay(focus.WeakRef(s))
	}()

	collected := false
	for range 10 {
		runtime.GC()
		if !arb.Status().HasTarget {
			collected = true
			break
		}
	}
	if !collected {
		t.Skip("session was not collected")
	}

	svc.setResult(focus.Granted)
	arb.OnFocusChange(focus.Gained)
	arb.OnFocusChange(focus.LostPermanent)
}

func TestNilTarget(t *testing.T) {
	arb, _ := newTestArbiter(t, focus.Denied)

	arb.OnPlay(nil)
	arb.OnPlay(focus.Ref(nil))
	arb.OnFocusChange(focus.LostTransient)
	arb.OnFocusChange(focus.Gained)
	arb.OnStop(nil)

	var s *fakeSession
	arb.OnPlay(focus.WeakRef(s))
}

func TestStrongRef(t *testing.T) {
	arb, _ := newTestArbiter(t, focus.Granted)
	s := &fakeSession{}

	arb.OnPlay(focus.Ref(s))
	arb.OnFocusChange(focus.LostTransient)
	expectCounts(t, s, 0, 1)

	s.deactivate()
	arb.OnFocusChange(focus.Gained)
	expectCounts(t, s, 0, 1)
}

func TestPlayIntentReplacesTarget(t *testing.T) {
	arb, _ := newTestArbiter(t, focus.Granted)
	first := &fakeSession{}
	second := &fakeSession{}

	arb.OnPlay(focus.WeakRef(first))
	arb.OnPlay(focus.WeakRef(second))
	arb.OnFocusChange(focus.LostTransient)

	expectCounts(t, first, 0, 0)
	expectCounts(t, second, 0, 1)
}

func TestDelayedTransientGainedScenario(t *testing.T) {
	arb, _ := newTestArbiter(t, focus.Delayed)
	s := &fakeSession{}

	arb.OnPlay(focus.WeakRef(s))
	arb.OnFocusChange(focus.LostTransient)
	arb.OnFocusChange(focus.Gained)

	expectCounts(t, s, 1, 2)
}

func TestUnknownChangeIgnored(t *testing.T) {
	arb, _ := newTestArbiter(t, focus.Granted)
	s := &fakeSession{}

	arb.OnPlay(focus.WeakRef(s))
	arb.OnFocusChange(focus.ChangeNone)
	arb.OnFocusChange(focus.Change(99))

	expectCounts(t, s, 0, 0)
	if st := arb.Status(); st.State != focus.StatePlaying {
		t.Fatalf("State = %s, want playing", st.State)
	}
}

func TestConcurrentHandlers(t *testing.T) {
	arb, _ := newTestArbiter(t, focus.Granted)
	s := &fakeSession{}

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(3)
		go func() {
			defer wg.Done()
			arb.OnPlay(focus.WeakRef(s))
		}()
		go func() {
			defer wg.Done()
			if i%2 == 0 {
				arb.OnFocusChange(focus.LostTransient)
			} else {
				arb.OnFocusChange(focus.Gained)
			}
		}()
		go func() {
			defer wg.Done()
			arb.OnStop(focus.WeakRef(s))
		}()
	}
	wg.Wait()

	arb.OnStop(focus.WeakRef(s))
	if st := arb.Status(); st.PlaybackDelayed || st.ResumeOnFocusGain {
		t.Fatalf("Status = %+v", st)
	}
}
