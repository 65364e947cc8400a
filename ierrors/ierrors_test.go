// (c) Copyright 2021 Hewlett Packard Enterprise Development LP

package ierrors

import (
	"errors"
	"testing"
)

func TestNew(t *testing.T) {
	const msg = "this is a simple test error message"
	template := `Invalid Error, received %v:%q, expected %v:%q`

	e := New(DataLoss, msg)
	if e.Code != DataLoss || e.Text != msg {
		t.Errorf(template, e.Code, e.Text, DataLoss, msg)
	}

	e = New(DataLoss)
	if e.Code != DataLoss || e.Text != e.Code.String() {
		t.Errorf(template, e.Code, e.Text, DataLoss, e.Code.String())
	}

	e = New(msg)
	if e.Code != Unknown || e.Text != msg {
		t.Errorf(template, e.Code, e.Text, Unknown, msg)
	}

	e = New(errors.New(msg))
	if e.Code != Unknown || e.Text != msg {
		t.Errorf(template, e.Code, e.Text, Unknown, msg)
	}

	e = New(Unauthenticated, errors.New(msg))
	if e.Code != Unauthenticated || e.Text != msg {
		t.Errorf(template, e.Code, e.Text, Unauthenticated, msg)
	}

	e = New(New(msg))
	if e.Code != Unknown || e.Text != msg {
		t.Errorf(template, e.Code, e.Text, Unknown, msg)
	}

	e = New(New(msg), ResourceExhausted)
	if e.Code != ResourceExhausted || e.Text != msg {
		t.Errorf(template, e.Code, e.Text, ResourceExhausted, msg)
	}

	e = New()
	if e.Code != Internal || e.Text != errorMessageInvalidInputParameters {
		t.Errorf(template, e.Code, e.Text, Internal, errorMessageInvalidInputParameters)
	}
}

func TestIs(t *testing.T) {
	e := New(NotFound, "missing target")
	if !Is(e, NotFound) {
		t.Fatalf("expected Is(e, NotFound) to be true")
	}
	if Is(e, Aborted) {
		t.Fatalf("expected Is(e, Aborted) to be false")
	}
	if Is(errors.New("plain"), NotFound) {
		t.Fatalf("expected a plain error to never match Is")
	}
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	e := New(Unavailable, cause)
	if !errors.Is(e, cause) {
		t.Fatalf("expected errors.Is to see through Unwrap to the cause")
	}
}
