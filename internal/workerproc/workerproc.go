// Package workerproc turns queue payloads into validation runs. It is shared
// by the long-polling worker and the Lambda SQS handler.
package workerproc

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"tenant-validation/internal/queue"
	"tenant-validation/internal/shared/auth"
	"tenant-validation/internal/validation"
)

// Runner runs automatic categories for one owner.
type Runner interface {
	RunCategories(ctx context.Context, actor auth.Actor, ownerID string, categories []validation.Category) ([]validation.Record, error)
}

// MessageMeta captures details useful for logging and diagnostics.
type MessageMeta struct {
	BodyLen int
	BodySHA string
}

// ComputeMeta returns the body length and SHA-256 hash.
func ComputeMeta(body string) MessageMeta {
	if body == "" {
		return MessageMeta{}
	}
	sum := sha256.Sum256([]byte(body))
	return MessageMeta{BodyLen: len(body), BodySHA: hex.EncodeToString(sum[:])}
}

// ErrEmptyBody indicates an empty queue payload.
type ErrEmptyBody struct {
	Meta MessageMeta
}

func (e ErrEmptyBody) Error() string { return "empty message body" }

// ErrDecode indicates a payload that is not a valid message.
type ErrDecode struct {
	Meta MessageMeta
	Err  error
}

func (e ErrDecode) Error() string {
	if e.Err == nil {
		return "decode message"
	}
	return "decode message: " + e.Err.Error()
}

// ErrBadCategories indicates a message naming unknown or manual categories.
type ErrBadCategories struct {
	OwnerID   string
	RequestID string
	Err       error
}

func (e ErrBadCategories) Error() string { return "bad categories: " + e.Err.Error() }

// ErrProcess indicates the run failed after the message was accepted.
type ErrProcess struct {
	OwnerID   string
	RequestID string
	Err       error
}

func (e ErrProcess) Error() string {
	if e.Err == nil {
		return "process validation"
	}
	return "process validation: " + e.Err.Error()
}

// Unrecoverable reports whether retrying the message can never succeed.
func Unrecoverable(err error) bool {
	var (
		empty  ErrEmptyBody
		decode ErrDecode
		cats   ErrBadCategories
		proc   ErrProcess
	)
	switch {
	case errors.As(err, &empty), errors.As(err, &decode), errors.As(err, &cats):
		return true
	case errors.As(err, &proc):
		return errors.Is(proc.Err, validation.ErrOwnerNotFound)
	}
	return false
}

// ParseMessage validates and decodes the queue payload.
func ParseMessage(body string) (queue.Message, MessageMeta, error) {
	meta := ComputeMeta(body)
	if strings.TrimSpace(body) == "" {
		return queue.Message{}, meta, ErrEmptyBody{Meta: meta}
	}
	msg, err := queue.DecodeMessage([]byte(body))
	if err != nil {
		return queue.Message{}, meta, ErrDecode{Meta: meta, Err: err}
	}
	return msg, meta, nil
}

// HandleMessage parses a payload and runs the categories it names.
func HandleMessage(ctx context.Context, runner Runner, body string) error {
	if runner == nil {
		return errors.New("validation service not configured")
	}
	msg, _, err := ParseMessage(body)
	if err != nil {
		return err
	}
	return Process(ctx, runner, msg)
}

// Process runs an already decoded message.
func Process(ctx context.Context, runner Runner, msg queue.Message) error {
	categories, err := validation.ParseCategories(strings.Join(msg.Categories, ","))
	if err != nil {
		return ErrBadCategories{OwnerID: msg.OwnerID, RequestID: msg.RequestID, Err: err}
	}
	for _, c := range categories {
		if !c.Automatic() {
			return ErrBadCategories{OwnerID: msg.OwnerID, RequestID: msg.RequestID, Err: validation.ErrNotAutomatic}
		}
	}

	actor := auth.System
	if id := strings.TrimSpace(msg.ActorID); id != "" {
		actor = auth.Actor{ID: id}
	}
	ctx = validation.WithRequestID(ctx, msg.RequestID)
	if _, err := runner.RunCategories(ctx, actor, msg.OwnerID, categories); err != nil {
		return ErrProcess{OwnerID: msg.OwnerID, RequestID: msg.RequestID, Err: err}
	}
	return nil
}
