package errors

import (
	stderrs "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatusCodeMapping(t *testing.T) {
	cases := []struct {
		code ErrorCode
		want int
	}{
		{ErrorCodeNotFound, http.StatusNotFound},
		{ErrorCodeInvalidArgument, http.StatusUnprocessableEntity},
		{ErrorCodeValidation, http.StatusBadRequest},
		{ErrorCodeParse, http.StatusBadRequest},
		{ErrorCodeTooManyRequests, http.StatusTooManyRequests},
		{ErrorCodeUnavailable, http.StatusServiceUnavailable},
		{ErrorCodeNetwork, http.StatusBadGateway},
		{ErrorCodeStorage, http.StatusBadGateway},
		{ErrorCodeInvariant, http.StatusConflict},
		{ErrorCodeDB, http.StatusInternalServerError},
		{ErrorCodePanic, http.StatusInternalServerError},
		{ErrorCodeUnknown, http.StatusInternalServerError},
		{9999, http.StatusInternalServerError}, // default branch
	}
	for _, c := range cases {
		if got := HTTPStatusCode(c.code); got != c.want {
			t.Fatalf("HTTPStatusCode(%v) = %d, want %d", c.code, got, c.want)
		}
	}
}

func TestCodeNames(t *testing.T) {
	if ErrorCodeInvariant.String() != "invariant" {
		t.Fatalf("name = %q", ErrorCodeInvariant.String())
	}
	if ErrorCode(999).String() != "code(999)" {
		t.Fatalf("unknown name = %q", ErrorCode(999).String())
	}
}

func TestErrorTypeAndMethods(t *testing.T) {
	var e *Error
	if e.Error() != "<nil>" {
		t.Fatalf("nil *Error render = %q, want <nil>", e.Error())
	}

	e1 := New(ErrorCodeValidation, "bad stuff")
	if CodeOf(e1) != ErrorCodeValidation {
		t.Fatalf("CodeOf(New) = %v", CodeOf(e1))
	}
	e2 := Newf(ErrorCodeParse, "bad json %d", 12)
	if got := e2.Error(); got != "bad json 12" {
		t.Fatalf("Newf().Error = %q", got)
	}

	src := stderrs.New("root")
	e3 := Wrap(src, ErrorCodeDB, "db failed")
	if u := stderrs.Unwrap(e3); u == nil || u.Error() != "root" {
		t.Fatalf("Wrap did not keep orig")
	}
	e4 := Wrapf(src, ErrorCodeStorage, "save %s", "doc")
	if want := "save doc: root"; e4.Error() != want {
		t.Fatalf("Wrapf().Error = %q, want %q", e4.Error(), want)
	}

	if got, ok := As(e4); !ok || got.Code() != ErrorCodeStorage {
		t.Fatalf("As() failed for our error")
	}
	if _, ok := As(src); ok {
		t.Fatalf("As() true for foreign error")
	}

	e5 := Wrap(src, ErrorCodeParse, "oops")
	e6 := WithField(e5, "commitTimeStamp")
	e7 := WithOp(e6, "decode")
	if fe, ok := As(e6); !ok || fe.Field() != "commitTimeStamp" {
		t.Fatalf("WithField failed")
	}
	if oe, ok := As(e7); !ok || oe.Op() != "decode" {
		t.Fatalf("WithOp failed")
	}
	if fe0, _ := As(e5); fe0.Field() != "" || fe0.Op() != "" {
		t.Fatalf("copy-on-write mutated original")
	}

	if wf := WireFrom(nil); wf != (Wire{}) {
		t.Fatalf("WireFrom(nil) expected zero, got %+v", wf)
	}
	if wf := WireFrom(src); wf.Code != ErrorCodeUnknown || wf.Message != "root" {
		t.Fatalf("WireFrom(foreign) mismatch: %+v", wf)
	}
	if wf := WireFrom(e4); wf.Code != ErrorCodeStorage || wf.Message != "save doc" {
		t.Fatalf("WireFrom(ours) mismatch: %+v", wf)
	}

	if st, _ := HTTP(nil); st != http.StatusOK {
		t.Fatalf("HTTP(nil) status = %d", st)
	}

	if !IsCode(NotFoundf("x"), ErrorCodeNotFound) ||
		!IsCode(InvalidArgf("x"), ErrorCodeInvalidArgument) ||
		!IsCode(Networkf("x"), ErrorCodeNetwork) ||
		!IsCode(Parsef("x"), ErrorCodeParse) ||
		!IsCode(Storagef("x"), ErrorCodeStorage) ||
		!IsCode(Invariantf("x"), ErrorCodeInvariant) ||
		!IsCode(DBf("x"), ErrorCodeDB) ||
		!IsCode(PanicErrf("x"), ErrorCodePanic) ||
		!IsCode(Unavailablef("x"), ErrorCodeUnavailable) {
		t.Fatalf("sugar helpers code mismatch")
	}

	if WrapIf(nil, ErrorCodeDB, "ignored") != nil {
		t.Fatalf("WrapIf(nil) should return nil")
	}

	deep := fmt.Errorf("level2: %w", fmt.Errorf("level1: %w", src))
	if got := Root(deep); got == nil || got.Error() != "root" {
		t.Fatalf("Root() failed, got %v", got)
	}
}

func TestHasCodeWalksChain(t *testing.T) {
	inner := NotFoundf("page missing")
	outer := Wrap(inner, ErrorCodeNetwork, "GET page")
	if CodeOf(outer) != ErrorCodeNetwork {
		t.Fatalf("outer code = %v", CodeOf(outer))
	}
	if !HasCode(outer, ErrorCodeNotFound) {
		t.Fatalf("HasCode should see wrapped not found")
	}
	if HasCode(outer, ErrorCodeParse) {
		t.Fatalf("HasCode false positive")
	}
	if HasCode(fmt.Errorf("x: %w", outer), ErrorCodeNotFound) != true {
		t.Fatalf("HasCode should look through foreign wrappers")
	}
}

func TestFromStatusAndTransient(t *testing.T) {
	cases := []struct {
		status    int
		transient bool
		notFound  bool
	}{
		{http.StatusNotFound, false, true},
		{http.StatusTooManyRequests, true, false},
		{http.StatusRequestTimeout, true, false},
		{http.StatusBadGateway, true, false},
		{http.StatusForbidden, false, false},
	}
	for _, c := range cases {
		err := FromStatus(c.status, "https://feed/index.json")
		if CodeOf(err) != ErrorCodeNetwork {
			t.Fatalf("status %d: code = %v", c.status, CodeOf(err))
		}
		if IsTransient(err) != c.transient {
			t.Fatalf("status %d: transient = %v", c.status, IsTransient(err))
		}
		if HasCode(err, ErrorCodeNotFound) != c.notFound {
			t.Fatalf("status %d: notFound mismatch", c.status)
		}
		if Retryable(err) != c.transient {
			t.Fatalf("status %d: Retryable mismatch", c.status)
		}
	}
	if Retryable(nil) {
		t.Fatalf("nil must not be retryable")
	}
}
