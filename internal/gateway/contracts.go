package gateway

import (
	"context"
	"fmt"

	"github.com/wvf-labs/docparse/internal/common"
)

// UserContent is the user-side payload of a completion request. When
// ImageDataURL is set the gateway attaches the image alongside the text
// (vision analysis); otherwise the request is text-only.
type UserContent struct {
	Text         string
	ImageDataURL string
}

// ChatRequest is one round-trip to the hosted model.
type ChatRequest struct {
	System string
	User   UserContent
}

// Gateway is the opaque boundary to the hosted chat-completion service.
// Implementations consume a single response choice and return its raw text.
type Gateway interface {
	Complete(ctx context.Context, req ChatRequest) (string, error)
}

// Error is a transport/auth/rate-limit failure calling the hosted model. The
// core does not retry; callers decide whether to skip the page or abort.
type Error struct {
	StatusCode int
	Message    string
	Cause      error
}

func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("gateway: status %d: %s", e.StatusCode, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("gateway: %s: %v", e.Message, e.Cause)
	}
	return "gateway: " + e.Message
}

func (e *Error) Unwrap() error {
	if e.Cause != nil {
		return e.Cause
	}
	return common.ErrGateway
}

// Is lets errors.Is(err, common.ErrGateway) match regardless of cause.
func (e *Error) Is(target error) bool {
	return target == common.ErrGateway
}
