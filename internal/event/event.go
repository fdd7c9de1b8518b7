// Package event decodes GitHub webhook deliveries into a strict, validated
// shape before anything acts on them.
package event

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Kind is the webhook family carried in X-GitHub-Event.
type Kind string

const (
	KindDiscussion        Kind = "discussion"
	KindDiscussionComment Kind = "discussion_comment"
	KindPing              Kind = "ping"
	KindUnsupported       Kind = ""
)

const (
	ActionCreated = "created"
	ActionEdited  = "edited"
)

type Discussion struct {
	NodeID string `json:"node_id" validate:"required"`
	Title  string `json:"title" validate:"required"`
}

type Installation struct {
	ID int64 `json:"id"`
}

type payload struct {
	Action       string        `json:"action" validate:"required"`
	Discussion   *Discussion   `json:"discussion" validate:"required"`
	Installation *Installation `json:"installation"`
}

// Event is a delivery that passed validation. Discussion is only set for the
// discussion kinds.
type Event struct {
	Kind           Kind
	Name           string
	Action         string
	Discussion     Discussion
	InstallationID int64
}

// MalformedEventError reports a delivery that is missing a required field or
// is not valid JSON.
type MalformedEventError struct {
	Field string
	Err   error
}

func (e *MalformedEventError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed event: %s: %v", e.Field, e.Err)
	}
	return "malformed event: missing " + e.Field
}

func (e *MalformedEventError) Unwrap() error { return e.Err }

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Decode classifies a delivery by its event name and validates the body of the
// kinds this service handles. Other kinds are returned undecoded.
func Decode(name string, body []byte) (Event, error) {
	kind := classify(name)
	if kind != KindDiscussion && kind != KindDiscussionComment {
		return Event{Kind: kind, Name: name}, nil
	}

	var p payload
	if err := json.Unmarshal(body, &p); err != nil {
		return Event{}, &MalformedEventError{Field: "body", Err: err}
	}
	if err := validate.Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return Event{}, &MalformedEventError{Field: fieldPath(verrs[0])}
		}
		return Event{}, &MalformedEventError{Field: "body", Err: err}
	}

	ev := Event{Kind: kind, Name: name, Action: p.Action, Discussion: *p.Discussion}
	if p.Installation != nil {
		ev.InstallationID = p.Installation.ID
	}
	return ev, nil
}

func classify(name string) Kind {
	switch Kind(name) {
	case KindDiscussion, KindDiscussionComment, KindPing:
		return Kind(name)
	default:
		return KindUnsupported
	}
}

// fieldPath drops the root struct name: "payload.discussion.node_id" becomes
// "discussion.node_id".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}
